package chat

import (
	"slices"
	"time"
)

// ArtifactInfo describes a file produced or consumed during a session. Version
// is the latest version number.
type ArtifactInfo struct {
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	Version      int       `json:"version"`
	Description  string    `json:"description,omitempty"`
}

// Preview is an artifact opened in the preview pane at a given version.
type Preview struct {
	Artifact ArtifactInfo
	Versions []int
	Version  int
	Content  []byte
}

func (p *Preview) clone() *Preview {
	if p == nil {
		return nil
	}
	c := *p
	c.Versions = slices.Clone(p.Versions)
	c.Content = slices.Clone(p.Content)
	return &c
}

// HasVersion reports whether v is one of the available versions.
func (p *Preview) HasVersion(v int) bool {
	return p != nil && slices.Contains(p.Versions, v)
}
