package model

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"hash/crc32"
)

// canonicalJSON marshals v with deterministic key order. encoding/json sorts
// map[string]T keys lexicographically before marshaling, which gives the
// same canonical form as the original Python implementation's
// json.dumps(..., sort_keys=True).
func canonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// digestOf returns the CRC32 checksum of data, used as a node's cache
// validator (ETag). Collisions are acceptable: digests are validators, not
// security tokens.
func digestOf(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// gzipCompress returns the gzip-compressed form of data. Compression happens
// once, at mutation time, and the result is cached on the node so GETs with
// "Accept-Encoding: gzip" never compress per request.
func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
