package httpapi

import (
	"time"

	"github.com/romariotrain/visa-docs/internal/media/domain"
	"github.com/romariotrain/visa-docs/internal/media/models"
)

type MediaResponse struct {
	ID           int64  `json:"id"`
	OriginalName string `json:"original_name"`
	FileName     string `json:"file_name"`
	URL          string `json:"url"`
	Type         string `json:"type"`
	Category     string `json:"category"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type CategoryResponse struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	MaxFiles    int    `json:"max_files"`
}

type dataEnvelope struct {
	Data any `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type validationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func toMediaResponse(m *models.Media, url string) MediaResponse {
	return MediaResponse{
		ID:           m.ID,
		OriginalName: m.OriginalName,
		FileName:     m.FileName,
		URL:          url,
		Type:         m.Type,
		Category:     string(m.Category),
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toCategoryResponse(c domain.CategoryMeta) CategoryResponse {
	return CategoryResponse{
		Key:         string(c.Key),
		Label:       c.Label,
		Description: c.Description,
		MaxFiles:    c.MaxFiles,
	}
}
