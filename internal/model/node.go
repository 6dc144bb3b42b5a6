package model

import "strconv"

// node is implemented by Repo, Branch, Tag, and Artifact. It lets
// Model.markModified walk the tree generically, recomputing each ancestor's
// cached representation in turn.
type node interface {
	eventPath() string
	typeName() string
	parentNode() node
	document() map[string]any
	setUpdateTime(t int64)
	setDigestAndPayload(d uint32, data, gzipData []byte)
	ETag() string
	JSON() []byte
}

// cache holds the representations recomputed by mark-modified: the node's
// last-touched timestamp, its digest, its canonical JSON, and the
// gzip-compressed form of that JSON. It is embedded by every node type.
type cache struct {
	updateTime int64
	digestVal  uint32
	jsonData   []byte
	gzipData   []byte
}

func (c *cache) setUpdateTime(t int64) {
	c.updateTime = t
}

func (c *cache) setDigestAndPayload(d uint32, data, gzipData []byte) {
	c.digestVal = d
	c.jsonData = data
	c.gzipData = gzipData
}

// ETag is the node's validator: a quoted decimal digest, matching the HTTP
// surface's If-None-Match comparisons.
func (c *cache) ETag() string {
	return strconv.Quote(strconv.FormatUint(uint64(c.digestVal), 10))
}

// JSON returns the node's last-computed canonical JSON.
func (c *cache) JSON() []byte {
	return c.jsonData
}

// CompressedJSON returns the node's cached gzip payload, or nil if one has
// not been computed yet (a node whose cache neither a mutation nor Load has
// filled in).
func (c *cache) CompressedJSON() []byte {
	return c.gzipData
}
