package templates

import (
	"time"

	"templatefill-backend/internal/extract"
)

// TemplateResponse is the outward-facing representation of a template.
type TemplateResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Placeholders []string  `json:"placeholders"`
	Labels       []string  `json:"labels"`
	Fillable     bool      `json:"fillable"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type listResponse struct {
	Templates []TemplateResponse `json:"templates"`
	Error     string             `json:"error,omitempty"`
}

type analyzeResponse struct {
	Placeholders []string `json:"placeholders"`
	Labels       []string `json:"labels"`
	Fillable     bool     `json:"fillable"`
}

type updateRequest struct {
	Name         *string  `json:"name"`
	Placeholders []string `json:"placeholders"`
}

func toResponse(t Template) TemplateResponse {
	names := t.Placeholders
	if names == nil {
		names = []string{}
	}
	return TemplateResponse{
		ID:           t.ID,
		Name:         t.Name,
		Placeholders: names,
		Labels:       labels(names),
		Fillable:     t.Fillable(),
		FileName:     t.FileName,
		MimeType:     t.MimeType,
		SizeBytes:    t.SizeBytes,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func labels(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = extract.Label(n)
	}
	return out
}
