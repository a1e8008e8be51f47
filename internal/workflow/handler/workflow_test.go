package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditrepo "github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/audit/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/repository"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/internal/workflow/service"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/actor"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/logger"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/testutil"
)

func newTestRouter(t *testing.T, withActor bool) (*chi.Mux, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	log := logger.New("workflow-test", "development")
	db := database.NewWithDB(mockDB.DB, log)

	svc := service.NewWorkflowService(
		db,
		repository.NewStateRepository(db),
		repository.NewTransitionRepository(db),
		auditrepo.NewAuditRepository(db),
		nil,
		log,
	)
	h := NewWorkflowHandler(svc, log)

	r := chi.NewRouter()
	if withActor {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := actor.WithActor(req.Context(), &actor.Actor{ID: 12, Name: "Ana Reyes", Role: "registrar"})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	r.Post("/certificates/workflow/transition", h.Transition)
	r.Get("/certificates/{type}/{id}/workflow", h.GetState)
	r.Get("/certificates/{type}/{id}/workflow/history", h.GetHistory)

	return r, mockDB
}

func TestTransitionEndpoint(t *testing.T) {
	router, mockDB := newTestRouter(t, true)
	defer mockDB.Close()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("FOR UPDATE").
		WillReturnRows(testutil.MockRows("current_state").AddRow("pending_review"))
	mockDB.ExpectExec("INSERT INTO workflow_states").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.Mock.ExpectQuery("INSERT INTO workflow_transitions").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.Mock.ExpectQuery("INSERT INTO activity_log").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	body := `{"certificate_type":"birth","certificate_id":42,"transition_type":"verify"}`
	req := httptest.NewRequest(http.MethodPost, "/certificates/workflow/transition", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ToState     string `json:"to_state"`
			FromState   string `json:"from_state"`
			PerformedBy int64  `json:"performed_by"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "verified", resp.Data.ToState)
	assert.Equal(t, "pending_review", resp.Data.FromState)
	assert.Equal(t, int64(12), resp.Data.PerformedBy)
	mockDB.ExpectationsWereMet(t)
}

func TestTransitionEndpoint_InvalidBody(t *testing.T) {
	router, mockDB := newTestRouter(t, true)
	defer mockDB.Close()

	body := `{"certificate_type":"adoption","certificate_id":0,"transition_type":""}`
	req := httptest.NewRequest(http.MethodPost, "/certificates/workflow/transition", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestTransitionEndpoint_MissingActor(t *testing.T) {
	router, mockDB := newTestRouter(t, false)
	defer mockDB.Close()

	body := `{"certificate_type":"birth","certificate_id":42,"transition_type":"submit"}`
	req := httptest.NewRequest(http.MethodPost, "/certificates/workflow/transition", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestGetStateEndpoint_NoRecord(t *testing.T) {
	router, mockDB := newTestRouter(t, true)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT certificate_type, certificate_id, current_state").
		WithArgs("marriage", int64(7)).
		WillReturnRows(testutil.MockRows("certificate_type"))

	req := httptest.NewRequest(http.MethodGet, "/certificates/marriage/7/workflow", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			CurrentState string `json:"current_state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "none", resp.Data.CurrentState)
	mockDB.ExpectationsWereMet(t)
}

func TestGetStateEndpoint_InvalidType(t *testing.T) {
	router, mockDB := newTestRouter(t, true)
	defer mockDB.Close()

	req := httptest.NewRequest(http.MethodGet, "/certificates/adoption/7/workflow", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockDB.ExpectationsWereMet(t)
}

func TestGetHistoryEndpoint(t *testing.T) {
	router, mockDB := newTestRouter(t, true)
	defer mockDB.Close()

	rows := testutil.MockRows(
		"id", "certificate_type", "certificate_id", "from_state", "to_state",
		"transition_type", "notes", "performed_by", "created_at",
	).AddRow("0d9f6cc1-4a2b-4d0e-9a53-111111111111", "birth", int64(42), nil, "pending_review", "submit", nil, int64(3), time.Now())

	mockDB.ExpectQuery("ORDER BY created_at ASC, id ASC").
		WithArgs("birth", int64(42)).
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/certificates/birth/42/workflow/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			TransitionType string `json:"transition_type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "submit", resp.Data[0].TransitionType)
	mockDB.ExpectationsWereMet(t)
}
