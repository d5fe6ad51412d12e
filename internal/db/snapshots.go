package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/inamate/sculpt/internal/typeid"
)

var ErrNotFound = errors.New("not found")

// DBTX is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the queries need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Snapshot struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"projectId"`
	Version   int             `json:"version"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const getLatestSnapshot = `
SELECT id, project_id, version, document, created_at
FROM snapshots
WHERE project_id = $1
ORDER BY version DESC
LIMIT 1`

// GetLatestSnapshot returns the highest version stored for projectID.
func (q *Queries) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	var s Snapshot
	err := q.db.QueryRow(ctx, getLatestSnapshot, projectID).Scan(
		&s.ID, &s.ProjectID, &s.Version, &s.Document, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get latest snapshot: %w", err)
	}
	return s, nil
}

const createSnapshot = `
INSERT INTO snapshots (id, project_id, version, document)
SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3
FROM snapshots
WHERE project_id = $2
RETURNING id, project_id, version, document, created_at`

// CreateSnapshot stores doc as the next version of projectID.
func (q *Queries) CreateSnapshot(ctx context.Context, projectID string, doc json.RawMessage) (Snapshot, error) {
	var s Snapshot
	err := q.db.QueryRow(ctx, createSnapshot, typeid.NewSnapshotID(), projectID, doc).Scan(
		&s.ID, &s.ProjectID, &s.Version, &s.Document, &s.CreatedAt,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	return s, nil
}
