// Package repository persists the activity log. The log is append-only:
// entries are written once and never updated or deleted.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/solomonvuelta1985-cpu/civil-registry-system-sub002/pkg/database"
)

// Entry is one activity log record
type Entry struct {
	ID         string          `db:"id" json:"id"`
	ActorID    int64           `db:"actor_id" json:"actor_id"`
	Action     string          `db:"action" json:"action"`
	EntityType string          `db:"entity_type" json:"entity_type"`
	EntityID   string          `db:"entity_id" json:"entity_id"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// ListParams holds filters for listing activity log entries
type ListParams struct {
	ActorID    *int64
	Action     *string
	EntityType *string
	EntityID   *string
	Page       int
	PerPage    int
}

// AuditRepository handles activity log persistence
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

const insertEntry = `
	INSERT INTO activity_log (id, actor_id, action, entity_type, entity_id, details)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at
`

// CreateTx appends an entry inside the given transaction, so audit records
// commit together with the change they describe.
func (r *AuditRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	err := tx.QueryRowxContext(ctx, insertEntry,
		entry.ID, entry.ActorID, entry.Action,
		entry.EntityType, entry.EntityID, entry.Details,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

// Create appends an entry outside any transaction
func (r *AuditRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	err := r.db.QueryRowxContext(ctx, insertEntry,
		entry.ID, entry.ActorID, entry.Action,
		entry.EntityType, entry.EntityID, entry.Details,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}

	return nil
}

// List returns activity log entries matching the given filters, newest first,
// along with the total match count for pagination.
func (r *AuditRepository) List(ctx context.Context, params ListParams) ([]Entry, int64, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if params.ActorID != nil {
		args = append(args, *params.ActorID)
		where += " AND actor_id = $" + strconv.Itoa(len(args))
	}
	if params.Action != nil {
		args = append(args, *params.Action)
		where += " AND action = $" + strconv.Itoa(len(args))
	}
	if params.EntityType != nil {
		args = append(args, *params.EntityType)
		where += " AND entity_type = $" + strconv.Itoa(len(args))
	}
	if params.EntityID != nil {
		args = append(args, *params.EntityID)
		where += " AND entity_id = $" + strconv.Itoa(len(args))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM activity_log" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count activity log entries: %w", err)
	}

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	args = append(args, params.PerPage)
	limit := "$" + strconv.Itoa(len(args))
	args = append(args, (params.Page-1)*params.PerPage)
	offset := "$" + strconv.Itoa(len(args))

	query := `
		SELECT id, actor_id, action, entity_type, entity_id, details, created_at
		FROM activity_log` + where + `
		ORDER BY created_at DESC
		LIMIT ` + limit + ` OFFSET ` + offset

	entries := []Entry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list activity log entries: %w", err)
	}

	return entries, total, nil
}
