// Package model implements the repo/branch/tag/artifact tree: the hard
// engineering core of stagger. A single Model owns the whole tree behind one
// mutex; every public method is synchronous from the caller's perspective.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/ssorj/stagger/internal/platform"
)

// Config carries the two advertised URLs embedded in /api/data's "config"
// object.
type Config struct {
	HTTPURL string
	AMQPURL string
}

// Model is the root of the tree: a map of repos, a monotonically increasing
// revision, and a cached representation of the whole document.
type Model struct {
	cache

	mu       sync.Mutex
	repos    map[string]*Repo
	revision int64
	config   Config
	bus      Publisher
	modified chan struct{}
	now      func() int64
}

// New creates an empty Model. Attach a Publisher with SetPublisher before
// the HTTP/AMQP surfaces start serving traffic.
func New(cfg Config) *Model {
	return &Model{
		repos:    make(map[string]*Repo),
		config:   cfg,
		bus:      noopPublisher{},
		modified: make(chan struct{}, 1),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// SetPublisher attaches the event bus that receives object-update events.
func (m *Model) SetPublisher(p Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bus = p
}

// Modified returns the channel the persistence worker waits on.
func (m *Model) Modified() <-chan struct{} {
	return m.modified
}

// Revision returns the current root revision, used as /api/data's ETag.
func (m *Model) Revision() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.revision
}

// ETag returns the quoted decimal revision, the validator for /api/data.
func (m *Model) ETag() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return strconv.Quote(strconv.FormatInt(m.revision, 10))
}

// JSON returns the last-computed canonical JSON of the whole document.
func (m *Model) JSON() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cache.jsonData
}

// CompressedJSON returns the cached gzip payload of the whole document.
func (m *Model) CompressedJSON() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cache.gzipData
}

// Load reads the JSON snapshot at path, if present, and reconstructs the
// tree bottom-up. A missing file is not an error; a malformed one is fatal
// to the caller (it returns the decode error).
func (m *Model) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return err
	}

	var doc persistedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("malformed data file %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for repoID, repoDoc := range doc.Repos {
		m.repos[repoID] = repoFromPersisted(repoID, repoDoc)
	}

	m.revision = doc.Revision

	m.recomputeAllLocked()

	return nil
}

type persistedDocument struct {
	Revision int64                      `json:"revision"`
	Repos    map[string]persistedRepo   `json:"repos"`
}

type persistedRepo struct {
	SourceURL string                     `json:"source_url"`
	JobURL    string                     `json:"job_url"`
	Branches  map[string]persistedBranch `json:"branches"`
}

type persistedBranch struct {
	Tags map[string]persistedTag `json:"tags"`
}

type persistedTag struct {
	BuildID   string                     `json:"build_id"`
	BuildURL  string                     `json:"build_url"`
	CommitID  string                     `json:"commit_id"`
	CommitURL string                     `json:"commit_url"`
	Artifacts map[string]persistedArtifact `json:"artifacts"`
}

type persistedArtifact struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"-"`
}

func (a *persistedArtifact) UnmarshalJSON(data []byte) error {
	raw := make(map[string]any)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Type, _ = raw["type"].(string)
	delete(raw, "type")
	delete(raw, "update_time")

	a.Fields = make(map[string]string, len(raw))

	for k, v := range raw {
		if s, ok := v.(string); ok {
			a.Fields[k] = s
		}
	}

	return nil
}

func repoFromPersisted(id string, doc persistedRepo) *Repo {
	r := newRepo(id, repoFields{SourceURL: doc.SourceURL, JobURL: doc.JobURL})

	for branchID, branchDoc := range doc.Branches {
		r.branches[branchID] = branchFromPersisted(branchID, r, branchDoc)
	}

	return r
}

func branchFromPersisted(id string, parent *Repo, doc persistedBranch) *Branch {
	b := newBranch(id, parent)

	for tagID, tagDoc := range doc.Tags {
		b.tags[tagID] = tagFromPersisted(tagID, b, tagDoc)
	}

	return b
}

func tagFromPersisted(id string, parent *Branch, doc persistedTag) *Tag {
	t := newTag(id, parent, tagFields{
		BuildID:   doc.BuildID,
		BuildURL:  doc.BuildURL,
		CommitID:  doc.CommitID,
		CommitURL: doc.CommitURL,
	})

	for artifactID, artifactDoc := range doc.Artifacts {
		t.artifacts[artifactID] = newArtifact(artifactID, t, artifactDoc.Type, artifactDoc.Fields)
	}

	return t
}

// recomputeAllLocked rebuilds every node's cache bottom-up after Load,
// without bumping revision or emitting events: the tree was just
// reconstructed from its own last-saved state.
func (m *Model) recomputeAllLocked() {
	now := m.now()

	for _, r := range m.repos {
		for _, b := range r.branches {
			for _, t := range b.tags {
				for _, a := range t.artifacts {
					touchLocked(a, now)
				}

				touchLocked(t, now)
			}

			touchLocked(b, now)
		}

		touchLocked(r, now)
	}

	m.recomputeRootCacheLocked(now)
}

func touchLocked(n node, now int64) {
	n.setUpdateTime(now)

	doc := n.document()

	data, err := canonicalJSON(doc)
	if err != nil {
		return
	}

	gz, err := gzipCompress(data)
	if err != nil {
		return
	}

	n.setDigestAndPayload(digestOf(data), data, gz)
}

// Data returns the document rendered for /api/data: {config, repos,
// revision}.
func (m *Model) Data() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.documentLocked()
}

func (m *Model) documentLocked() map[string]any {
	repos := make(map[string]any, len(m.repos))
	for id, r := range m.repos {
		repos[id] = r.document()
	}

	return map[string]any{
		"config": map[string]any{
			"http_url": m.config.HTTPURL,
			"amqp_url": m.config.AMQPURL,
		},
		"repos":    repos,
		"revision": m.revision,
	}
}

// persistedDataLocked renders the subset of the document that's written to
// disk: revision and repos, without the runtime-derived config block.
func (m *Model) persistedDataLocked() map[string]any {
	repos := make(map[string]any, len(m.repos))
	for id, r := range m.repos {
		repos[id] = r.document()
	}

	return map[string]any{
		"repos":    repos,
		"revision": m.revision,
	}
}

// PersistedJSON returns the canonical JSON saved by the persistence worker.
func (m *Model) PersistedJSON() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return canonicalJSON(m.persistedDataLocked())
}

// PutRepo decodes body, replaces any existing repo with the same id, and
// marks it modified.
func (m *Model) PutRepo(repoID string, body []byte) (*Repo, error) {
	var fields repoFields
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, platform.BadJSONError{Message: err.Error(), Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := newRepo(repoID, fields)
	m.repos[repoID] = r

	m.markModifiedLocked(r)

	return r, nil
}

// DeleteRepo removes a repo and its subtree. Absence is a not-found error.
func (m *Model) DeleteRepo(repoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.repos[repoID]; !ok {
		return platform.NotFoundError{EntityType: "repo"}
	}

	delete(m.repos, repoID)
	m.bumpRootLocked()

	return nil
}

// GetRepo looks up a repo by id.
func (m *Model) GetRepo(repoID string) (*Repo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repos[repoID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "repo"}
	}

	return r, nil
}

// PutBranch ensures the parent repo exists (creating an empty one on the
// fly), replaces any existing branch with the same id, and marks it
// modified. A branch has no fields of its own, so there is nothing to
// validate.
func (m *Model) PutBranch(repoID, branchID string) (*Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.ensureRepoLocked(repoID)

	b := newBranch(branchID, r)
	r.branches[branchID] = b

	m.markModifiedLocked(b)

	return b, nil
}

// DeleteBranch removes a branch and its subtree.
func (m *Model) DeleteBranch(repoID, branchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repos[repoID]
	if !ok {
		return platform.NotFoundError{EntityType: "repo"}
	}

	if _, ok := r.branches[branchID]; !ok {
		return platform.NotFoundError{EntityType: "branch"}
	}

	delete(r.branches, branchID)
	m.markModifiedLocked(r)

	return nil
}

// GetBranch looks up a branch by id.
func (m *Model) GetBranch(repoID, branchID string) (*Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repos[repoID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "repo"}
	}

	b, ok := r.branches[branchID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "branch"}
	}

	return b, nil
}

// PutTag decodes body, ensures ancestors exist, replaces any existing tag
// with the same id, and marks it modified.
func (m *Model) PutTag(repoID, branchID, tagID string, body []byte) (*Tag, error) {
	var fields tagFields
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, platform.BadJSONError{Message: err.Error(), Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.ensureRepoLocked(repoID)
	b := ensureBranchLocked(r, branchID)

	t := newTag(tagID, b, fields)
	b.tags[tagID] = t

	m.markModifiedLocked(t)

	return t, nil
}

// DeleteTag removes a tag and its artifacts.
func (m *Model) DeleteTag(repoID, branchID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repos[repoID]
	if !ok {
		return platform.NotFoundError{EntityType: "repo"}
	}

	b, ok := r.branches[branchID]
	if !ok {
		return platform.NotFoundError{EntityType: "branch"}
	}

	if _, ok := b.tags[tagID]; !ok {
		return platform.NotFoundError{EntityType: "tag"}
	}

	delete(b.tags, tagID)
	m.markModifiedLocked(b)

	return nil
}

// GetTag looks up a tag by id.
func (m *Model) GetTag(repoID, branchID, tagID string) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repos[repoID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "repo"}
	}

	b, ok := r.branches[branchID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "branch"}
	}

	t, ok := b.tags[tagID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "tag"}
	}

	return t, nil
}

// PutArtifact decodes body, validates the artifact's variant-specific
// required fields, ensures ancestors exist, replaces any existing artifact
// with the same id, and marks it modified.
func (m *Model) PutArtifact(repoID, branchID, tagID, artifactID string, body []byte) (*Artifact, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, platform.BadJSONError{Message: err.Error(), Err: err}
	}

	artifactType, _ := raw["type"].(string)
	if artifactType == "" {
		return nil, platform.BadDataError{Message: "missing required field: type"}
	}

	fields, err := decodeArtifactFields(artifactType, raw)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.ensureRepoLocked(repoID)
	b := ensureBranchLocked(r, branchID)
	t := ensureTagLocked(b, tagID)

	a := newArtifact(artifactID, t, artifactType, fields)
	t.artifacts[artifactID] = a

	m.markModifiedLocked(a)

	return a, nil
}

// DeleteArtifact removes an artifact.
func (m *Model) DeleteArtifact(repoID, branchID, tagID, artifactID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repos[repoID]
	if !ok {
		return platform.NotFoundError{EntityType: "repo"}
	}

	b, ok := r.branches[branchID]
	if !ok {
		return platform.NotFoundError{EntityType: "branch"}
	}

	t, ok := b.tags[tagID]
	if !ok {
		return platform.NotFoundError{EntityType: "tag"}
	}

	if _, ok := t.artifacts[artifactID]; !ok {
		return platform.NotFoundError{EntityType: "artifact"}
	}

	delete(t.artifacts, artifactID)
	m.markModifiedLocked(t)

	return nil
}

// GetArtifact looks up an artifact by id.
func (m *Model) GetArtifact(repoID, branchID, tagID, artifactID string) (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.repos[repoID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "repo"}
	}

	b, ok := r.branches[branchID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "branch"}
	}

	t, ok := b.tags[tagID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "tag"}
	}

	a, ok := t.artifacts[artifactID]
	if !ok {
		return nil, platform.NotFoundError{EntityType: "artifact"}
	}

	return a, nil
}

func (m *Model) ensureRepoLocked(repoID string) *Repo {
	r, ok := m.repos[repoID]
	if !ok {
		r = newRepo(repoID, repoFields{})
		m.repos[repoID] = r
	}

	return r
}

func ensureBranchLocked(r *Repo, branchID string) *Branch {
	b, ok := r.branches[branchID]
	if !ok {
		b = newBranch(branchID, r)
		r.branches[branchID] = b
	}

	return b
}

func ensureTagLocked(b *Branch, tagID string) *Tag {
	t, ok := b.tags[tagID]
	if !ok {
		t = newTag(tagID, b, tagFields{})
		b.tags[tagID] = t
	}

	return t
}

// markModifiedLocked implements the mark-modified protocol: recompute the
// node's cache, emit its update event, and recurse to the parent. At the
// root, bump revision, recompute the root's cache, and signal the
// persistence worker. Callers must hold m.mu.
func (m *Model) markModifiedLocked(n node) {
	now := m.now()

	for cur := n; cur != nil; cur = cur.parentNode() {
		touchLocked(cur, now)

		m.bus.Publish(Update{
			EventPath: cur.eventPath(),
			TypeName:  cur.typeName(),
			Digest:    cur.ETag(),
			JSON:      cur.JSON(),
		})
	}

	m.bumpRootLocked()
}

func (m *Model) bumpRootLocked() {
	m.revision++

	m.recomputeRootCacheLocked(m.now())

	select {
	case m.modified <- struct{}{}:
	default:
	}
}

// recomputeRootCacheLocked rebuilds the root's cached representation without
// touching revision or signaling the persistence worker. Used both by
// bumpRootLocked (after incrementing revision) and by Load (reconstructing a
// tree that's already at rest).
func (m *Model) recomputeRootCacheLocked(now int64) {
	m.cache.setUpdateTime(now)

	doc := m.documentLocked()

	data, err := canonicalJSON(doc)
	if err != nil {
		return
	}

	gz, err := gzipCompress(data)
	if err != nil {
		return
	}

	m.cache.setDigestAndPayload(digestOf(data), data, gz)
}
