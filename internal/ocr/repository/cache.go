// Package repository persists the content-addressed OCR cache.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
)

// CacheRepository handles OCR cache persistence
type CacheRepository struct {
	db *database.DB
}

// NewCacheRepository creates a new cache repository
func NewCacheRepository(db *database.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Lookup returns the cache entry for a fingerprint, or nil on a miss. A hit
// bumps access_count and last_accessed in the same statement, so concurrent
// hits never lose updates.
func (r *CacheRepository) Lookup(ctx context.Context, fingerprint string) (*domain.CacheEntry, error) {
	query := `
		UPDATE ocr_cache
		SET access_count = access_count + 1, last_accessed = NOW()
		WHERE fingerprint = $1
		RETURNING fingerprint, extracted_text, structured_fields, file_name,
		          file_size, pages_processed, processing_time, engine_version,
		          access_count, created_at, last_accessed
	`

	var entry domain.CacheEntry
	err := r.db.GetContext(ctx, &entry, query, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up cache entry: %w", err)
	}

	return &entry, nil
}

// Store writes a cache entry. Re-storing an existing fingerprint overwrites
// the extraction payload and resets last_accessed; access_count is preserved.
// The upsert settles the benign race where two concurrent misses both compute
// and both store.
func (r *CacheRepository) Store(ctx context.Context, entry *domain.CacheEntry) error {
	query := `
		INSERT INTO ocr_cache (
			fingerprint, extracted_text, structured_fields, file_name,
			file_size, pages_processed, processing_time, engine_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint) DO UPDATE SET
			extracted_text = EXCLUDED.extracted_text,
			structured_fields = EXCLUDED.structured_fields,
			file_name = EXCLUDED.file_name,
			file_size = EXCLUDED.file_size,
			pages_processed = EXCLUDED.pages_processed,
			processing_time = EXCLUDED.processing_time,
			engine_version = EXCLUDED.engine_version,
			last_accessed = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Fingerprint, entry.ExtractedText, entry.StructuredFields,
		entry.FileName, entry.FileSize, entry.PagesProcessed,
		entry.ProcessingTime, entry.EngineVersion,
	)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// DeleteStale removes entries not accessed since the cutoff and returns how
// many were evicted.
func (r *CacheRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM ocr_cache WHERE last_accessed < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to evict stale cache entries: %w", err)
	}

	evicted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count evicted cache entries: %w", err)
	}

	return evicted, nil
}
