package fulfillment

import (
	"time"

	"templatefill-backend/internal/artifacts"
	"templatefill-backend/internal/extract"
	"templatefill-backend/internal/llm"
)

// SessionResponse is the outward-facing view of a session.
type SessionResponse struct {
	SessionID    string                      `json:"sessionId"`
	TemplateID   string                      `json:"templateId"`
	TemplateName string                      `json:"templateName"`
	Step         Step                        `json:"step"`
	Fields       []FieldResponse             `json:"fields"`
	Missing      []string                    `json:"missingFields"`
	CanConfirm   bool                        `json:"canConfirm"`
	Busy         bool                        `json:"busy"`
	Brief        string                      `json:"brief,omitempty"`
	Font         *llm.Font                   `json:"font,omitempty"`
	Artifact     *ArtifactSummary            `json:"artifact,omitempty"`
	Receipt      *artifacts.ArtifactResponse `json:"receipt,omitempty"`
}

// FieldResponse is one placeholder with its current value.
type FieldResponse struct {
	Name     string        `json:"name"`
	Label    string        `json:"label"`
	Value    string        `json:"value"`
	Position *llm.Position `json:"position,omitempty"`
}

// ArtifactSummary describes a rendered artifact without its bytes.
type ArtifactSummary struct {
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Fallback    bool      `json:"fallback"`
	Revision    int       `json:"revision"`
	DownloadURL string    `json:"downloadUrl"`
	Locator     string    `json:"locator,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type briefRequest struct {
	Brief string `json:"brief"`
}

type fieldsRequest struct {
	Values map[string]string `json:"values"`
}

func toResponse(snap Snapshot) SessionResponse {
	resp := SessionResponse{
		SessionID:    snap.ID,
		TemplateID:   snap.TemplateID,
		TemplateName: snap.TemplateName,
		Step:         snap.Step,
		Fields:       make([]FieldResponse, 0, len(snap.Placeholders)),
		Missing:      snap.Missing,
		CanConfirm:   snap.CanConfirm,
		Busy:         snap.Busy,
		Brief:        snap.Brief,
	}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}
	for _, name := range snap.Placeholders {
		f := FieldResponse{Name: name, Label: extract.Label(name), Value: snap.Values[name]}
		if snap.Suggestion != nil {
			if pos, ok := snap.Suggestion.PositionsByField[name]; ok {
				pos := pos
				f.Position = &pos
			}
		}
		resp.Fields = append(resp.Fields, f)
	}
	if snap.Suggestion != nil {
		font := snap.Suggestion.Font
		resp.Font = &font
	}
	if snap.Artifact != nil {
		resp.Artifact = &ArtifactSummary{
			FileName:    snap.Artifact.FileName,
			ContentType: snap.Artifact.ContentType,
			Fallback:    snap.Artifact.Fallback,
			Revision:    snap.Revision,
			DownloadURL: "/api/v1/sessions/" + snap.ID + "/download",
			Locator:     snap.Artifact.Locator,
			CreatedAt:   snap.Artifact.CreatedAt,
		}
	}
	if snap.Receipt != nil {
		rec := artifacts.ToResponse(*snap.Receipt)
		resp.Receipt = &rec
	}
	return resp
}
