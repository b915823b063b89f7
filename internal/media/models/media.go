package models

import (
	"time"

	"github.com/romariotrain/visa-docs/internal/media/domain"
)

// Media is one uploaded document. Path stays nil until the blob write
// succeeds; a nil Path after Upload returns means the record is being torn down.
type Media struct {
	ID           int64           `db:"id"`
	OriginalName string          `db:"original_name"`
	FileName     string          `db:"file_name"`
	Path         *string         `db:"path"`
	Type         string          `db:"type"`
	Category     domain.Category `db:"category"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (m *Media) Stored() bool {
	return m.Path != nil && *m.Path != ""
}

// PathValue returns Path or "" when unset.
func (m *Media) PathValue() string {
	if m.Path == nil {
		return ""
	}
	return *m.Path
}
