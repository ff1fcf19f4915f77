package templates

import "time"

// Status tracks whether a template's record and stored bytes are in sync.
type Status string

const (
	StatusReady    Status = "ready"
	StatusOrphaned Status = "orphaned"
)

// Template is a stored source document plus its ordered placeholder names.
type Template struct {
	ID           string
	Name         string
	CreatedBy    string
	Placeholders []string
	StorageKey   string
	FileName     string
	MimeType     string
	SizeBytes    int64
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fillable reports whether the template can be offered for fulfillment.
func (t Template) Fillable() bool {
	return len(t.Placeholders) > 0
}

// CreateInput carries an upload. A nil Placeholders slice asks for extraction.
type CreateInput struct {
	FileName     string
	Data         []byte
	Name         string
	Placeholders []string
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name         *string
	Placeholders []string
}
