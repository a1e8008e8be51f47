package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/testutil"
)

func newTestRepo(t *testing.T) (*CacheRepository, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("ocr-test", "development")
	return NewCacheRepository(database.NewWithDB(mockDB.DB, log)), mockDB
}

func TestCacheRepository_Lookup_Hit(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	defer mockDB.Close()

	now := time.Now()
	rows := testutil.MockRows(
		"fingerprint", "extracted_text", "structured_fields", "file_name",
		"file_size", "pages_processed", "processing_time", "engine_version",
		"access_count", "created_at", "last_accessed",
	).AddRow(
		"abc123", "CERTIFICATE OF LIVE BIRTH", []byte(`{"first_name":"JUAN"}`), "birth.pdf",
		int64(2048), 2, 4.2, "tesseract 5.3.0",
		int64(3), now, now,
	)

	mockDB.ExpectQuery("UPDATE ocr_cache").
		WithArgs("abc123").
		WillReturnRows(rows)

	entry, err := repo.Lookup(context.Background(), "abc123")

	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "CERTIFICATE OF LIVE BIRTH", entry.ExtractedText)
	assert.Equal(t, int64(3), entry.AccessCount)
	mockDB.ExpectationsWereMet(t)
}

func TestCacheRepository_Lookup_Miss(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("UPDATE ocr_cache").
		WithArgs("missing").
		WillReturnRows(testutil.MockRows("fingerprint"))

	entry, err := repo.Lookup(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, entry)
	mockDB.ExpectationsWereMet(t)
}

func TestCacheRepository_Store(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	defer mockDB.Close()

	mockDB.ExpectExec("INSERT INTO ocr_cache").
		WithArgs("abc123", "raw text", []byte(`{}`), "birth.pdf",
			int64(2048), 2, 4.2, "tesseract 5.3.0").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Store(context.Background(), &domain.CacheEntry{
		Fingerprint:      "abc123",
		ExtractedText:    "raw text",
		StructuredFields: []byte(`{}`),
		FileName:         "birth.pdf",
		FileSize:         2048,
		PagesProcessed:   2,
		ProcessingTime:   4.2,
		EngineVersion:    "tesseract 5.3.0",
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestCacheRepository_DeleteStale(t *testing.T) {
	repo, mockDB := newTestRepo(t)
	defer mockDB.Close()

	cutoff := time.Now().Add(-90 * 24 * time.Hour)
	mockDB.ExpectExec("DELETE FROM ocr_cache").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	evicted, err := repo.DeleteStale(context.Background(), cutoff)

	require.NoError(t, err)
	assert.Equal(t, int64(7), evicted)
	mockDB.ExpectationsWereMet(t)
}

func TestFingerprint_PageSensitivity(t *testing.T) {
	data := []byte("same document bytes")

	whole := domain.Fingerprint(data, nil)
	pages13 := domain.Fingerprint(data, []int{1, 3})
	pages31 := domain.Fingerprint(data, []int{3, 1, 3})
	pages12 := domain.Fingerprint(data, []int{1, 2})

	assert.NotEqual(t, whole, pages13)
	assert.NotEqual(t, pages13, pages12)
	assert.Equal(t, pages13, pages31, "selection order and duplicates must not change the fingerprint")
	assert.Equal(t, whole, domain.Fingerprint(data, []int{}))
}
