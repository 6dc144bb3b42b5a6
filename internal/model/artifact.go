package model

import (
	"encoding/json"
	"fmt"

	"github.com/ssorj/stagger/internal/platform"

	"gopkg.in/go-playground/validator.v9"
)

var fieldValidator = validator.New()

// Artifact is a sum type over four concrete kinds: container, maven, file,
// and rpm. Each kind carries its own required field set (enforced by
// decodeArtifactFields at PUT time); Fields holds the kind's attributes
// keyed by their persisted JSON name.
type Artifact struct {
	cache

	id     string
	parent *Tag
	Type   string
	Fields map[string]string
}

func newArtifact(id string, parent *Tag, artifactType string, fields map[string]string) *Artifact {
	return &Artifact{
		id:     id,
		parent: parent,
		Type:   artifactType,
		Fields: fields,
	}
}

func (a *Artifact) typeName() string  { return "artifact" }
func (a *Artifact) parentNode() node  { return a.parent }
func (a *Artifact) eventPath() string { return a.parent.eventPath() + "/artifacts/" + a.id }
func (a *Artifact) apiPath() string   { return a.parent.apiPath() + "/artifacts/" + a.id }

func (a *Artifact) document() map[string]any {
	doc := make(map[string]any, len(a.Fields)+2)

	for k, v := range a.Fields {
		doc[k] = v
	}

	doc["type"] = a.Type
	doc["update_time"] = a.updateTime

	return doc
}

type containerFields struct {
	RegistryURL string `json:"registry_url" validate:"required"`
	Repository  string `json:"repository" validate:"required"`
	ImageID     string `json:"image_id" validate:"required"`
}

type mavenFields struct {
	RepositoryURL string `json:"repository_url" validate:"required"`
	GroupID       string `json:"group_id" validate:"required"`
	ArtifactID    string `json:"artifact_id" validate:"required"`
	Version       string `json:"version" validate:"required"`
}

type fileFields struct {
	URL string `json:"url" validate:"required"`
}

type rpmFields struct {
	RepositoryURL string `json:"repository_url" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Version       string `json:"version" validate:"required"`
	Release       string `json:"release" validate:"required"`
}

// decodeArtifactFields validates raw (the decoded PUT body) against the
// field set required by artifactType, returning the fields as a flat
// string map suitable for Artifact.Fields.
func decodeArtifactFields(artifactType string, raw map[string]any) (map[string]string, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, platform.BadJSONError{Message: err.Error(), Err: err}
	}

	switch artifactType {
	case "container":
		var f containerFields
		if err := decodeAndValidate(data, &f); err != nil {
			return nil, err
		}

		return map[string]string{
			"registry_url": f.RegistryURL,
			"repository":   f.Repository,
			"image_id":     f.ImageID,
		}, nil
	case "maven":
		var f mavenFields
		if err := decodeAndValidate(data, &f); err != nil {
			return nil, err
		}

		return map[string]string{
			"repository_url": f.RepositoryURL,
			"group_id":       f.GroupID,
			"artifact_id":    f.ArtifactID,
			"version":        f.Version,
		}, nil
	case "file":
		var f fileFields
		if err := decodeAndValidate(data, &f); err != nil {
			return nil, err
		}

		return map[string]string{"url": f.URL}, nil
	case "rpm":
		var f rpmFields
		if err := decodeAndValidate(data, &f); err != nil {
			return nil, err
		}

		return map[string]string{
			"repository_url": f.RepositoryURL,
			"name":           f.Name,
			"version":        f.Version,
			"release":        f.Release,
		}, nil
	default:
		return nil, platform.BadDataError{Message: fmt.Sprintf("unknown artifact type: %q", artifactType)}
	}
}

func decodeAndValidate(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return platform.BadJSONError{Message: err.Error(), Err: err}
	}

	if err := fieldValidator.Struct(dest); err != nil {
		return platform.BadDataError{Message: err.Error(), Err: err}
	}

	return nil
}
