// Package service orchestrates the OCR pipeline: fingerprint, cache lookup,
// extraction, structured-field parsing, cache store.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/domain"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/parser"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/config"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/errors"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
)

// Extractor extracts raw text from a document on disk
type Extractor interface {
	Extract(ctx context.Context, documentPath string, pages []int) (string, int, error)
	Version(ctx context.Context) string
}

// EventPublisher announces completed document processing
type EventPublisher interface {
	PublishProcessed(ctx context.Context, result *domain.ExtractionResult)
}

// ProcessRequest is a request to run the OCR pipeline over a document
type ProcessRequest struct {
	Data     []byte
	FileName string
	Pages    []int
}

// Service runs the OCR pipeline
type Service struct {
	cache     *repository.CacheRepository
	engine    Extractor
	cfg       *config.OCRConfig
	publisher EventPublisher
	logger    *logger.Logger
}

// NewService creates a new OCR service. publisher may be nil when the service
// runs without a message broker.
func NewService(cache *repository.CacheRepository, engine Extractor, cfg *config.OCRConfig, publisher EventPublisher, log *logger.Logger) *Service {
	return &Service{
		cache:     cache,
		engine:    engine,
		cfg:       cfg,
		publisher: publisher,
		logger:    log,
	}
}

// Process runs the pipeline for one document. Identical bytes with the same
// page selection hit the cache and skip extraction entirely; a cached result
// reports zero processing time.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*domain.ExtractionResult, error) {
	if len(req.Data) == 0 {
		return nil, errors.BadRequest("document is empty")
	}

	pages := domain.NormalizePages(req.Pages)
	fingerprint := domain.Fingerprint(req.Data, pages)

	cached, err := s.cache.Lookup(ctx, fingerprint)
	if err != nil {
		// A cache failure must not take the pipeline down; fall through to
		// a fresh extraction.
		s.logger.Error().Err(err).Str("fingerprint", fingerprint).Msg("cache lookup failed")
	}
	if cached != nil {
		result := &domain.ExtractionResult{
			Fingerprint:    fingerprint,
			RawText:        cached.ExtractedText,
			Cached:         true,
			ProcessingTime: 0,
			PagesProcessed: cached.PagesProcessed,
			FileName:       req.FileName,
			FileSize:       int64(len(req.Data)),
		}
		if len(cached.StructuredFields) > 0 {
			if err := json.Unmarshal(cached.StructuredFields, &result.Fields); err != nil {
				s.logger.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cached structured fields unreadable")
			}
		}

		s.logger.Info().
			Str("fingerprint", fingerprint).
			Int64("access_count", cached.AccessCount).
			Msg("ocr cache hit")

		s.publishProcessed(ctx, result)
		return result, nil
	}

	result, err := s.extract(ctx, req, fingerprint, pages)
	if err != nil {
		var procErr *domain.ProcessFailedError
		if errors.As(err, &procErr) {
			s.logger.Error().
				Str("tool", procErr.Tool).
				Str("output", procErr.Output).
				Err(procErr.Err).
				Msg("extraction tool failed")
		}
		return nil, mapExtractionError(err)
	}

	s.publishProcessed(ctx, result)
	return result, nil
}

func (s *Service) extract(ctx context.Context, req ProcessRequest, fingerprint string, pages []int) (*domain.ExtractionResult, error) {
	docFile, err := os.CreateTemp(s.cfg.TempDir, "upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp document: %w", err)
	}
	docPath := docFile.Name()
	defer os.Remove(docPath)

	if _, err := docFile.Write(req.Data); err != nil {
		docFile.Close()
		return nil, fmt.Errorf("failed to write temp document: %w", err)
	}
	if err := docFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to write temp document: %w", err)
	}

	start := time.Now()
	rawText, pagesProcessed, err := s.engine.Extract(ctx, docPath, pages)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start).Seconds()

	fields := parser.Parse(rawText)
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode structured fields: %w", err)
	}

	entry := &domain.CacheEntry{
		Fingerprint:      fingerprint,
		ExtractedText:    rawText,
		StructuredFields: fieldsJSON,
		FileName:         req.FileName,
		FileSize:         int64(len(req.Data)),
		PagesProcessed:   pagesProcessed,
		ProcessingTime:   elapsed,
		EngineVersion:    s.engine.Version(ctx),
	}
	if err := s.cache.Store(ctx, entry); err != nil {
		// The extraction result is still good; losing the cache write only
		// costs a recomputation later.
		s.logger.Error().Err(err).Str("fingerprint", fingerprint).Msg("cache store failed")
	}

	s.logger.Info().
		Str("fingerprint", fingerprint).
		Str("file_name", req.FileName).
		Int("pages_processed", pagesProcessed).
		Float64("processing_time", elapsed).
		Msg("document extracted")

	return &domain.ExtractionResult{
		Fingerprint:    fingerprint,
		RawText:        rawText,
		Fields:         fields,
		Cached:         false,
		ProcessingTime: elapsed,
		PagesProcessed: pagesProcessed,
		FileName:       req.FileName,
		FileSize:       int64(len(req.Data)),
	}, nil
}

func (s *Service) publishProcessed(ctx context.Context, result *domain.ExtractionResult) {
	if s.publisher != nil {
		s.publisher.PublishProcessed(ctx, result)
	}
}

// StartJanitor runs the cache eviction loop until ctx is cancelled. Entries
// untouched for longer than the configured retention are deleted on each
// sweep. A zero retention disables eviction.
func (s *Service) StartJanitor(ctx context.Context) {
	if s.cfg.CacheRetention <= 0 {
		s.logger.Info().Msg("ocr cache eviction disabled")
		return
	}

	interval := s.cfg.CacheSweepInterval
	if interval <= 0 {
		interval = 12 * time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-s.cfg.CacheRetention)
				evicted, err := s.cache.DeleteStale(ctx, cutoff)
				if err != nil {
					s.logger.Error().Err(err).Msg("ocr cache sweep failed")
					continue
				}
				if evicted > 0 {
					s.logger.Info().Int64("evicted", evicted).Msg("ocr cache entries evicted")
				}
			}
		}
	}()
}

// mapExtractionError converts engine failures into API errors. Tool detail
// stays in the operational log; callers get a stable message.
func mapExtractionError(err error) error {
	var procErr *domain.ProcessFailedError
	switch {
	case errors.Is(err, domain.ErrEngineNotFound):
		return errors.Internal("text extraction engine is not available")
	case errors.Is(err, domain.ErrNoPagesExtracted):
		return errors.BadRequest("none of the requested pages could be processed")
	case errors.As(err, &procErr):
		return errors.Internal("text extraction failed")
	default:
		return err
	}
}
