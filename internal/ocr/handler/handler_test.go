package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/ocr/service"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/config"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/testutil"
)

type stubExtractor struct {
	text  string
	pages int
}

func (s *stubExtractor) Extract(_ context.Context, _ string, _ []int) (string, int, error) {
	return s.text, s.pages, nil
}

func (s *stubExtractor) Version(_ context.Context) string { return "tesseract 5.3.0" }

func newTestHandler(t *testing.T) (*Handler, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("ocr-test", "development")
	db := database.NewWithDB(mockDB.DB, log)

	cfg := &config.OCRConfig{
		Language:       "eng",
		ProcessTimeout: time.Second,
		TempDir:        t.TempDir(),
	}
	svc := service.NewService(
		repository.NewCacheRepository(db),
		&stubExtractor{text: "NAME: JUAN CRUZ", pages: 1},
		cfg, nil, log,
	)

	return NewHandler(svc, 10<<20, log), mockDB
}

func multipartRequest(t *testing.T, fileName, pages string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("document", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake content"))
	require.NoError(t, err)

	if pages != "" {
		require.NoError(t, writer.WriteField("pages", pages))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/ocr/process", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestProcessEndpoint(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("UPDATE ocr_cache").
		WillReturnRows(testutil.MockRows("fingerprint"))
	mockDB.ExpectExec("INSERT INTO ocr_cache").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	h.Process(rec, multipartRequest(t, "birth.pdf", "1,3"))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Cached         bool   `json:"cached"`
			RawText        string `json:"raw_text"`
			PagesProcessed int    `json:"pages_processed"`
			Fields         struct {
				FirstName string `json:"first_name"`
			} `json:"structured_fields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.Data.Cached)
	assert.Equal(t, "NAME: JUAN CRUZ", resp.Data.RawText)
	assert.Equal(t, "JUAN", resp.Data.Fields.FirstName)
	mockDB.ExpectationsWereMet(t)
}

func TestProcessEndpoint_RejectsNonPDF(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	rec := httptest.NewRecorder()
	h.Process(rec, multipartRequest(t, "scan.png", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestProcessEndpoint_MissingFile(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("pages", "1"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/ocr/process", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	h.Process(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestProcessEndpoint_InvalidPages(t *testing.T) {
	h, mockDB := newTestHandler(t)
	defer mockDB.Close()

	rec := httptest.NewRecorder()
	h.Process(rec, multipartRequest(t, "birth.pdf", "1,abc"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestParsePages(t *testing.T) {
	pages, err := parsePages(" 1, 3 ,2")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 2}, pages)

	pages, err = parsePages("")
	require.NoError(t, err)
	assert.Nil(t, pages)

	_, err = parsePages("0,1")
	assert.Error(t, err)
}
