package artifacts

import (
	"time"

	"templatefill-backend/internal/render"
)

// Record is a delivered artifact stored for download.
type Record struct {
	ID         string
	UserID     string
	TemplateID string
	SessionID  string
	Revision   int
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	Fallback   bool
	CreatedAt  time.Time
}

// Delivery is one rendered artifact of a session. Revision counts renders
// within the session so a re-render after edits is stored separately.
type Delivery struct {
	TemplateID string
	SessionID  string
	Revision   int
	Artifact   render.Artifact
}

// Locator is the download path handed to the client.
func (r Record) Locator() string {
	return "/api/v1/artifacts/" + r.ID + "/download"
}
