package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/visa-docs/internal/media/domain"
	"github.com/romariotrain/visa-docs/internal/media/models"
	"github.com/romariotrain/visa-docs/internal/media/repository"
)

type Service struct {
	repo   repository.MediaRepository
	blobs  repository.BlobStore
	idGen  func() uuid.UUID
	logger zerolog.Logger
}

func New(repo repository.MediaRepository, blobs repository.BlobStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		blobs:  blobs,
		idGen:  uuid.New,
		logger: logger.With().Str("component", "media_service").Logger(),
	}
}

// UploadInput is an upload that already passed request validation.
type UploadInput struct {
	Content      io.Reader
	Size         int64
	OriginalName string
	MimeType     string
	Category     domain.Category
}

// BlobKey is the storage key of a record's file.
func BlobKey(id int64, fileName string) string {
	return "media/" + strconv.FormatInt(id, 10) + "/" + fileName
}

// Upload creates the record first with no path, writes the blob, then sets the
// path. The record and the blob live in different stores, so a failed blob
// write is undone by deleting the record (and the blob, when the path update
// is what failed). Errors are *UploadError.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*models.Media, error) {
	if in.Content == nil || !in.Category.Valid() {
		return nil, models.ErrInvalidArgument
	}

	m := &models.Media{
		OriginalName: in.OriginalName,
		FileName:     s.fileName(in.OriginalName),
		Type:         in.MimeType,
		Category:     in.Category,
	}

	// 1. Record with a nil path.
	if err := s.repo.Create(ctx, m); err != nil {
		s.logger.Error().Err(err).
			Str("category", string(in.Category)).
			Msg("database write failed")
		uploadsTotal.WithLabelValues(string(in.Category), "record_error").Inc()
		return nil, recordCreationError(err)
	}

	log := s.logger.With().Int64("media_id", m.ID).Str("file_name", m.FileName).Logger()

	// 2. Blob.
	key, err := s.putBlob(ctx, m, in)
	if err != nil {
		log.Error().Err(err).Msg("file storage failed")
		s.rollback(ctx, log, m.ID, "")
		uploadsTotal.WithLabelValues(string(in.Category), "storage_error").Inc()
		return nil, err
	}

	// 3. Path.
	stored, err := s.repo.SetPath(ctx, m.ID, key)
	if err != nil {
		log.Error().Err(err).Str("path", key).Msg("path update failed")
		s.rollback(ctx, log, m.ID, key)
		uploadsTotal.WithLabelValues(string(in.Category), "storage_error").Inc()
		return nil, storageError(msgUnexpectedStorage, err)
	}

	uploadsTotal.WithLabelValues(string(in.Category), "ok").Inc()
	log.Info().Str("path", key).Str("category", string(in.Category)).Msg("media uploaded")
	return stored, nil
}

func (s *Service) putBlob(ctx context.Context, m *models.Media, in UploadInput) (key string, err error) {
	defer func() {
		if r := recover(); r != nil {
			key, err = "", storageError(msgUnexpectedStorage, fmt.Errorf("blob put panic: %v", r))
		}
	}()

	key, err = s.blobs.Put(ctx, BlobKey(m.ID, m.FileName), in.Content, in.Size, in.MimeType)
	if err != nil {
		return "", storageError(msgStoreFailed, err)
	}
	if key == "" {
		return "", storageError(msgStoreFailed, errors.New("blob store returned an empty key"))
	}
	return key, nil
}

// rollback is the compensating step of Upload. It must run even when the
// request context is already canceled.
func (s *Service) rollback(ctx context.Context, log zerolog.Logger, id int64, key string) {
	ctx = context.WithoutCancel(ctx)

	if key != "" {
		if err := s.blobs.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("path", key).Msg("orphan blob left after failed upload")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		rollbacksTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Msg("compensating record delete failed")
		return
	}
	rollbacksTotal.WithLabelValues("ok").Inc()
}

// Delete removes the record with the given id and its file.
// Unknown ids yield models.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id int64) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			deletesTotal.WithLabelValues("not_found").Inc()
			return models.ErrNotFound
		}
		s.logger.Error().Err(err).Int64("media_id", id).Msg("unexpected error during file deletion")
		deletesTotal.WithLabelValues("error").Inc()
		return deleteError(msgUnexpectedDelete, err)
	}
	return s.DeleteMedia(ctx, m)
}

// DeleteMedia deletes the blob, then the record. A blob that is already gone
// counts as deleted, which keeps Delete safe to repeat after a partial failure.
// When the blob delete fails the record is kept and a *DeleteError returned.
func (s *Service) DeleteMedia(ctx context.Context, m *models.Media) (err error) {
	log := s.logger.With().Int64("media_id", m.ID).Str("path", m.PathValue()).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("unexpected error during file deletion")
			err = deleteError(msgUnexpectedDelete, fmt.Errorf("delete panic: %v", r))
		}
		deletesTotal.WithLabelValues(deleteResult(err)).Inc()
	}()

	if err := s.deleteBlob(ctx, log, m); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, m.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		log.Error().Err(err).Msg("unexpected error during file deletion")
		return deleteError(msgUnexpectedDelete, err)
	}

	log.Info().Msg("media deleted")
	return nil
}

func (s *Service) deleteBlob(ctx context.Context, log zerolog.Logger, m *models.Media) error {
	if !m.Stored() {
		log.Warn().Msg("attempted to delete media without a stored file")
		return nil
	}

	exists, err := s.blobs.Exists(ctx, *m.Path)
	if err != nil {
		log.Error().Err(err).Msg("unexpected error during file deletion")
		return deleteError(msgUnexpectedDelete, err)
	}
	if !exists {
		log.Warn().Msg("attempted to delete missing file")
		return nil
	}

	if err := s.blobs.Delete(ctx, *m.Path); err != nil {
		log.Error().Err(err).Msg("failed to delete file from disk")
		return deleteError(msgDeleteFailed, err)
	}
	return nil
}

func deleteResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// List groups stored records by category. Categories without records are
// absent from the result. Records still waiting for their path are skipped.
func (s *Service) List(ctx context.Context) (map[domain.Category][]*models.Media, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	grouped := make(map[domain.Category][]*models.Media)
	for _, m := range all {
		if !m.Stored() {
			continue
		}
		grouped[m.Category] = append(grouped[m.Category], m)
	}
	return grouped, nil
}

func (s *Service) Categories() []domain.CategoryMeta {
	return domain.Categories()
}

// URL resolves the public link of a stored record.
func (s *Service) URL(m *models.Media) string {
	return s.blobs.URL(m.PathValue())
}

func (s *Service) fileName(originalName string) string {
	name := s.idGen().String()
	if ext := sanitizeExt(filepath.Ext(originalName)); ext != "" {
		name += "." + ext
	}
	return name
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
