package artifacts

import "time"

// ArtifactResponse is the outward-facing representation of an artifact.
type ArtifactResponse struct {
	ArtifactID string    `json:"artifactId"`
	TemplateID string    `json:"templateId"`
	SessionID  string    `json:"sessionId"`
	Revision   int       `json:"revision"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	Fallback   bool      `json:"fallback"`
	Locator    string    `json:"locator"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToResponse converts a record for the API.
func ToResponse(rec Record) ArtifactResponse {
	return ArtifactResponse{
		ArtifactID: rec.ID,
		TemplateID: rec.TemplateID,
		SessionID:  rec.SessionID,
		Revision:   rec.Revision,
		FileName:   rec.FileName,
		MimeType:   rec.MimeType,
		SizeBytes:  rec.SizeBytes,
		Fallback:   rec.Fallback,
		Locator:    rec.Locator(),
		CreatedAt:  rec.CreatedAt,
	}
}
