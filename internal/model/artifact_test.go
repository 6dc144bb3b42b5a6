package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArtifactFields(t *testing.T) {
	tests := []struct {
		name         string
		artifactType string
		raw          map[string]any
		wantFields   map[string]string
		wantErr      bool
	}{
		{
			name:         "container with all required fields",
			artifactType: "container",
			raw: map[string]any{
				"registry_url": "https://registry.example",
				"repository":   "widget",
				"image_id":     "sha256:abc",
			},
			wantFields: map[string]string{
				"registry_url": "https://registry.example",
				"repository":   "widget",
				"image_id":     "sha256:abc",
			},
		},
		{
			name:         "container missing image_id",
			artifactType: "container",
			raw: map[string]any{
				"registry_url": "https://registry.example",
				"repository":   "widget",
			},
			wantErr: true,
		},
		{
			name:         "maven with all required fields",
			artifactType: "maven",
			raw: map[string]any{
				"repository_url": "https://repo.example",
				"group_id":       "com.example",
				"artifact_id":    "widget",
				"version":        "1.0",
			},
			wantFields: map[string]string{
				"repository_url": "https://repo.example",
				"group_id":       "com.example",
				"artifact_id":    "widget",
				"version":        "1.0",
			},
		},
		{
			name:         "file with url",
			artifactType: "file",
			raw:          map[string]any{"url": "https://example/a.tar.gz"},
			wantFields:   map[string]string{"url": "https://example/a.tar.gz"},
		},
		{
			name:         "file missing url",
			artifactType: "file",
			raw:          map[string]any{},
			wantErr:      true,
		},
		{
			name:         "rpm with all required fields",
			artifactType: "rpm",
			raw: map[string]any{
				"repository_url": "https://repo.example",
				"name":           "widget",
				"version":        "1.0",
				"release":        "1",
			},
			wantFields: map[string]string{
				"repository_url": "https://repo.example",
				"name":           "widget",
				"version":        "1.0",
				"release":        "1",
			},
		},
		{
			name:         "unknown type",
			artifactType: "zip",
			raw:          map[string]any{},
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := decodeArtifactFields(tt.artifactType, tt.raw)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestArtifactDocument_IncludesTypeAndFields(t *testing.T) {
	parent := newTag("v1", nil, tagFields{})
	a := newArtifact("a1", parent, "file", map[string]string{"url": "https://example/a"})

	doc := a.document()

	assert.Equal(t, "file", doc["type"])
	assert.Equal(t, "https://example/a", doc["url"])
}
