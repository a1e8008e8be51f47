package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/service"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/errors"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/httputil"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
)

// Handler handles OCR processing endpoints
type Handler struct {
	service       *service.Service
	maxUploadSize int64
	logger        *logger.Logger
}

// NewHandler creates a new OCR handler
func NewHandler(svc *service.Service, maxUploadSize int64, log *logger.Logger) *Handler {
	return &Handler{
		service:       svc,
		maxUploadSize: maxUploadSize,
		logger:        log,
	}
}

// Process handles POST /ocr/process.
// Accepts a multipart form with:
// - document: the PDF file
// - pages: optional comma-separated page numbers ("1,3")
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httputil.Error(w, errors.BadRequest("file too large or invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{
			"document": "this field is required",
		}))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		httputil.Error(w, errors.Validation(map[string]string{
			"document": "only PDF documents are accepted",
		}))
		return
	}

	pages, err := parsePages(r.FormValue("pages"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read uploaded document")
		httputil.Error(w, errors.Internal("failed to read uploaded document"))
		return
	}

	result, err := h.service.Process(r.Context(), service.ProcessRequest{
		Data:     data,
		FileName: header.Filename,
		Pages:    pages,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// parsePages parses a comma-separated page list. An empty value means the
// whole document.
func parsePages(value string) ([]int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	pages := make([]int, 0, len(parts))
	for _, part := range parts {
		page, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || page < 1 {
			return nil, errors.Validation(map[string]string{
				"pages": "must be a comma-separated list of positive page numbers",
			})
		}
		pages = append(pages, page)
	}

	return pages, nil
}
