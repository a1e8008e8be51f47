// Package domain defines the OCR pipeline's types: fingerprints, extraction
// results, structured fields and the extraction error taxonomy.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Fingerprint derives the content-addressed cache key for a document. The
// digest covers the file bytes and the normalized page selection: the same
// bytes with a different page subset must land in a different cache entry.
func Fingerprint(data []byte, pages []int) string {
	h := sha256.New()
	h.Write(data)

	if len(pages) > 0 {
		selection := NormalizePages(pages)
		h.Write([]byte("|pages="))
		for i, p := range selection {
			if i > 0 {
				h.Write([]byte(","))
			}
			h.Write([]byte(strconv.Itoa(p)))
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// NormalizePages returns the page selection sorted ascending with duplicates
// and non-positive page numbers removed.
func NormalizePages(pages []int) []int {
	seen := make(map[int]struct{}, len(pages))
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p < 1 {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// StructuredFields holds the best-effort semantic fields recovered from raw
// OCR text. Absent matches leave fields empty; every value is a suggestion
// for human review, never ground truth.
type StructuredFields struct {
	FirstName      string `json:"first_name,omitempty"`
	MiddleName     string `json:"middle_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Sex            string `json:"sex,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	PlaceOfBirth   string `json:"place_of_birth,omitempty"`
	Multiplicity   string `json:"multiplicity,omitempty"`
	RegistryNumber string `json:"registry_number,omitempty"`
}

// Empty reports whether no field was recovered
func (f StructuredFields) Empty() bool {
	return f == StructuredFields{}
}

// ExtractionResult is returned to the caller of the OCR pipeline
type ExtractionResult struct {
	Fingerprint    string           `json:"fingerprint"`
	RawText        string           `json:"raw_text"`
	Fields         StructuredFields `json:"structured_fields"`
	Cached         bool             `json:"cached"`
	ProcessingTime float64          `json:"processing_time"`
	PagesProcessed int              `json:"pages_processed"`
	FileName       string           `json:"file_name"`
	FileSize       int64            `json:"file_size"`
}

// CacheEntry is one row of the content-addressed OCR cache
type CacheEntry struct {
	Fingerprint      string    `db:"fingerprint" json:"fingerprint"`
	ExtractedText    string    `db:"extracted_text" json:"extracted_text"`
	StructuredFields []byte    `db:"structured_fields" json:"structured_fields"`
	FileName         string    `db:"file_name" json:"file_name"`
	FileSize         int64     `db:"file_size" json:"file_size"`
	PagesProcessed   int       `db:"pages_processed" json:"pages_processed"`
	ProcessingTime   float64   `db:"processing_time" json:"processing_time"`
	EngineVersion    string    `db:"engine_version" json:"engine_version"`
	AccessCount      int64     `db:"access_count" json:"access_count"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	LastAccessed     time.Time `db:"last_accessed" json:"last_accessed"`
}

// ErrEngineNotFound is returned when the OCR binary is missing from every
// configured install location.
var ErrEngineNotFound = errors.New("ocr engine binary not found in any configured location")

// ErrNoPagesExtracted is returned when a page-subset run produced no text
// for any requested page.
var ErrNoPagesExtracted = errors.New("no pages could be extracted from the document")

// ProcessFailedError is returned when an external tool exits non-zero, times
// out, or leaves no output behind. Output carries the captured tool output
// for the operational log.
type ProcessFailedError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ProcessFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Tool)
}

func (e *ProcessFailedError) Unwrap() error {
	return e.Err
}
