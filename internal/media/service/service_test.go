package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/visa-docs/internal/media/domain"
	"github.com/romariotrain/visa-docs/internal/media/models"
	"github.com/romariotrain/visa-docs/internal/media/repository"
)

var fixedID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func newTestService(repo repository.MediaRepository, blobs repository.BlobStore) *Service {
	svc := New(repo, blobs, zerolog.Nop())
	svc.idGen = func() uuid.UUID { return fixedID }
	return svc
}

func jpegInput(category domain.Category) UploadInput {
	body := bytes.Repeat([]byte{0xFF}, 1024)
	return UploadInput{
		Content:      bytes.NewReader(body),
		Size:         int64(len(body)),
		OriginalName: "portrait.JPG",
		MimeType:     "image/jpeg",
		Category:     category,
	}
}

func TestUpload_InvalidArguments(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name string
		in   UploadInput
	}{
		{name: "nil content", in: UploadInput{Category: domain.Photo}},
		{name: "unknown category", in: UploadInput{Content: strings.NewReader("x"), Category: "passport-scan"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := new(StoreMock)
			bl := new(BlobMock)
			svc := newTestService(st, bl)

			// Nothing may be persisted for rejected input.
			got, err := svc.Upload(ctx, tc.in)
			require.ErrorIs(t, err, models.ErrInvalidArgument)
			require.Nil(t, got)
			st.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			bl.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpload_CreatesRecordThenBlobThenPath(t *testing.T) {
	ctx := context.Background()
	st := new(StoreMock)
	bl := new(BlobMock)
	svc := newTestService(st, bl)

	const wantName = "11111111-1111-1111-1111-111111111111.jpg"
	const wantKey = "media/5/" + wantName

	st.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			m := args.Get(1).(*models.Media)
			// The record is written before any blob exists.
			require.Nil(t, m.Path)
			require.Equal(t, wantName, m.FileName)
			require.Equal(t, "portrait.JPG", m.OriginalName)
			require.Equal(t, "image/jpeg", m.Type)
			m.ID = 5
		}).
		Return(nil).Once()
	bl.On("Put", mock.Anything, wantKey, mock.Anything, int64(1024), "image/jpeg").Return(wantKey, nil).Once()

	path := wantKey
	stored := &models.Media{ID: 5, FileName: wantName, Path: &path, Category: domain.Photo}
	st.On("SetPath", mock.Anything, int64(5), wantKey).Return(stored, nil).Once()

	got, err := svc.Upload(ctx, jpegInput(domain.Photo))
	require.NoError(t, err)
	require.Equal(t, stored, got)
	st.AssertExpectations(t)
	bl.AssertExpectations(t)
}

func TestUpload_RecordCreationFailure(t *testing.T) {
	ctx := context.Background()
	st := new(StoreMock)
	bl := new(BlobMock)
	svc := newTestService(st, bl)

	st.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused")).Once()

	got, err := svc.Upload(ctx, jpegInput(domain.Visa))
	require.Nil(t, got)

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindRecordCreation, ue.Kind)
	assert.Equal(t, "database", ue.Field)
	assert.Equal(t, "Failed to save file metadata. Please try again.", ue.Message)
	bl.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpload_BlobFailureRollsBackRecord(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(b *memBlobs)
		wantMsg string
	}{
		{name: "put error", setup: func(b *memBlobs) { b.failPut = errors.New("disk full") }, wantMsg: msgStoreFailed},
		{name: "empty key", setup: func(b *memBlobs) { b.emptyKey = true }, wantMsg: msgStoreFailed},
		{name: "panic", setup: func(b *memBlobs) { b.panicPut = true }, wantMsg: msgUnexpectedStorage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := repository.NewMemoryRepository()
			blobs := newMemBlobs()
			tc.setup(blobs)
			svc := newTestService(repo, blobs)

			got, err := svc.Upload(ctx, jpegInput(domain.Photo))
			require.Nil(t, got)

			var ue *UploadError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, KindStorage, ue.Kind)
			assert.Equal(t, "file", ue.Field)
			assert.Equal(t, tc.wantMsg, ue.Message)

			// No orphan record may survive a failed blob write.
			all, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestUpload_SetPathFailureRemovesRecordAndBlob(t *testing.T) {
	ctx := context.Background()
	st := new(StoreMock)
	blobs := newMemBlobs()
	svc := newTestService(st, blobs)

	st.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Media).ID = 9 }).
		Return(nil).Once()
	st.On("SetPath", mock.Anything, int64(9), mock.Anything).Return(nil, errors.New("tx aborted")).Once()
	st.On("Delete", mock.Anything, int64(9)).Return(nil).Once()

	got, err := svc.Upload(ctx, jpegInput(domain.Passport))
	require.Nil(t, got)

	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindStorage, ue.Kind)
	assert.Equal(t, msgUnexpectedStorage, ue.Message)
	assert.Zero(t, blobs.count())
	st.AssertExpectations(t)
}

func TestUpload_RollbackSurvivesCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := new(StoreMock)
	bl := new(BlobMock)
	svc := newTestService(st, bl)

	st.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Media).ID = 3 }).
		Return(nil).Once()
	bl.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("", context.Canceled).Once()
	st.On("Delete", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), int64(3)).
		Return(nil).Once()

	_, err := svc.Upload(ctx, jpegInput(domain.Visa))
	require.Error(t, err)
	st.AssertExpectations(t)
}

func TestUpload_StoresBlobUnderReturnedPath(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	blobs := newMemBlobs()
	svc := New(repo, blobs, zerolog.Nop())

	for _, c := range []domain.Category{domain.Passport, domain.Visa, domain.Photo} {
		got, err := svc.Upload(ctx, jpegInput(c))
		require.NoError(t, err)
		require.True(t, got.Stored())
		assert.True(t, blobs.has(*got.Path))
		assert.Equal(t, BlobKey(got.ID, got.FileName), *got.Path)
		assert.True(t, strings.HasSuffix(got.FileName, ".jpg"))
		assert.Equal(t, c, got.Category)
	}
}

func TestDelete_RemovesBlobAndRecord(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	blobs := newMemBlobs()
	svc := newTestService(repo, blobs)

	m, err := svc.Upload(ctx, jpegInput(domain.Photo))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, m.ID))
	assert.False(t, blobs.has(*m.Path))
	_, err = repo.GetByID(ctx, m.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

// A missing blob is treated as already deleted. This is what makes a second
// delete after a partial failure succeed instead of erroring.
func TestDelete_MissingBlobIsNotAnError(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	blobs := newMemBlobs()
	svc := newTestService(repo, blobs)

	m, err := svc.Upload(ctx, jpegInput(domain.Visa))
	require.NoError(t, err)
	require.NoError(t, blobs.Delete(ctx, *m.Path))

	require.NoError(t, svc.Delete(ctx, m.ID))
	_, err = repo.GetByID(ctx, m.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDelete_Twice(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	svc := newTestService(repo, newMemBlobs())

	m, err := svc.Upload(ctx, jpegInput(domain.Passport))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, m.ID))
	require.ErrorIs(t, svc.Delete(ctx, m.ID), models.ErrNotFound)
}

func TestDelete_BlobDeleteFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	blobs := newMemBlobs()
	svc := newTestService(repo, blobs)

	m, err := svc.Upload(ctx, jpegInput(domain.Photo))
	require.NoError(t, err)

	blobs.failDel = errors.New("permission denied")
	err = svc.Delete(ctx, m.ID)

	var de *DeleteError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Failed to delete file from disk.", de.Message)
	assert.Equal(t, "file", de.Field)

	// The record stays so the delete can be retried.
	_, err = repo.GetByID(ctx, m.ID)
	require.NoError(t, err)

	blobs.failDel = nil
	require.NoError(t, svc.Delete(ctx, m.ID))
}

func TestDelete_UnexpectedErrorsAreNormalized(t *testing.T) {
	ctx := context.Background()
	path := "media/4/a.pdf"
	m := &models.Media{ID: 4, Path: &path, Category: domain.Visa}

	t.Run("exists error", func(t *testing.T) {
		st := new(StoreMock)
		bl := new(BlobMock)
		svc := newTestService(st, bl)
		bl.On("Exists", mock.Anything, path).Return(false, errors.New("timeout")).Once()

		var de *DeleteError
		require.ErrorAs(t, svc.DeleteMedia(ctx, m), &de)
		assert.Equal(t, msgUnexpectedDelete, de.Message)
		st.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("record delete error", func(t *testing.T) {
		st := new(StoreMock)
		bl := new(BlobMock)
		svc := newTestService(st, bl)
		bl.On("Exists", mock.Anything, path).Return(true, nil).Once()
		bl.On("Delete", mock.Anything, path).Return(nil).Once()
		st.On("Delete", mock.Anything, int64(4)).Return(errors.New("deadlock")).Once()

		var de *DeleteError
		require.ErrorAs(t, svc.DeleteMedia(ctx, m), &de)
		assert.Equal(t, msgUnexpectedDelete, de.Message)
	})

	t.Run("lookup error", func(t *testing.T) {
		st := new(StoreMock)
		svc := newTestService(st, new(BlobMock))
		st.On("GetByID", mock.Anything, int64(4)).Return(nil, errors.New("db down")).Once()

		var de *DeleteError
		require.ErrorAs(t, svc.Delete(ctx, 4), &de)
	})

	t.Run("panic", func(t *testing.T) {
		st := new(StoreMock)
		bl := new(BlobMock)
		svc := newTestService(st, bl)
		bl.On("Exists", mock.Anything, path).Panic("boom")

		var de *DeleteError
		require.ErrorAs(t, svc.DeleteMedia(ctx, m), &de)
	})
}

func TestDelete_RecordWithoutPath(t *testing.T) {
	ctx := context.Background()
	st := new(StoreMock)
	bl := new(BlobMock)
	svc := newTestService(st, bl)

	st.On("Delete", mock.Anything, int64(8)).Return(nil).Once()

	require.NoError(t, svc.DeleteMedia(ctx, &models.Media{ID: 8}))
	bl.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestDelete_LostRaceIsNotFound(t *testing.T) {
	ctx := context.Background()
	st := new(StoreMock)
	bl := new(BlobMock)
	svc := newTestService(st, bl)
	path := "media/2/a.png"

	bl.On("Exists", mock.Anything, path).Return(false, nil).Once()
	st.On("Delete", mock.Anything, int64(2)).Return(models.ErrNotFound).Once()

	err := svc.DeleteMedia(ctx, &models.Media{ID: 2, Path: &path})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestList_GroupsByCategory(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	svc := newTestService(repo, newMemBlobs())

	for _, c := range []domain.Category{domain.Passport, domain.Passport, domain.Visa} {
		_, err := svc.Upload(ctx, jpegInput(c))
		require.NoError(t, err)
	}
	// A record still waiting for its path is not listed.
	require.NoError(t, repo.Create(ctx, &models.Media{Category: domain.Photo}))

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got[domain.Passport], 2)
	assert.Len(t, got[domain.Visa], 1)
	_, hasPhoto := got[domain.Photo]
	assert.False(t, hasPhoto)
	for _, bucket := range got {
		assert.NotEmpty(t, bucket)
	}
	assert.Less(t, got[domain.Passport][0].ID, got[domain.Passport][1].ID)
}

func TestList_Empty(t *testing.T) {
	svc := newTestService(repository.NewMemoryRepository(), newMemBlobs())

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_RepoError(t *testing.T) {
	st := new(StoreMock)
	svc := newTestService(st, new(BlobMock))
	st.On("List", mock.Anything).Return(nil, errors.New("db down")).Once()

	_, err := svc.List(context.Background())
	require.Error(t, err)
}

func TestCategories_IndependentOfRecords(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(repository.NewMemoryRepository(), newMemBlobs())

	before := svc.Categories()
	_, err := svc.Upload(ctx, jpegInput(domain.Photo))
	require.NoError(t, err)

	assert.Equal(t, before, svc.Categories())
	require.Len(t, before, 3)
}

func TestFileName(t *testing.T) {
	svc := newTestService(nil, nil)

	cases := map[string]string{
		"scan.PDF":       fixedID.String() + ".pdf",
		"noext":          fixedID.String(),
		"archive.tar.gz": fixedID.String() + ".gz",
		"../../evil.j/g": fixedID.String(),
		"weird.j\\pg":    fixedID.String(),
	}
	for in, want := range cases {
		assert.Equal(t, want, svc.fileName(in), in)
	}
}
