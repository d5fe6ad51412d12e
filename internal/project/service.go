package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inamate/sculpt/internal/db"
	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/typeid"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrInvalidProject  = errors.New("invalid project id")
	ErrInvalidDocument = errors.New("invalid document")
)

// SnapshotStore is the persistence the service needs; *db.Queries
// implements it.
type SnapshotStore interface {
	GetLatestSnapshot(ctx context.Context, projectID string) (db.Snapshot, error)
	CreateSnapshot(ctx context.Context, projectID string, doc json.RawMessage) (db.Snapshot, error)
}

type Service struct {
	store SnapshotStore
	now   func() time.Time
}

func NewService(store SnapshotStore) *Service {
	return &Service{store: store, now: time.Now}
}

// Latest returns the newest saved document of projectID.
func (s *Service) Latest(ctx context.Context, projectID string) (*document.Document, error) {
	if err := typeid.Validate(projectID, typeid.PrefixProject); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	snap, err := s.store.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var doc document.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", snap.ID, err)
	}
	doc.Project.Version = snap.Version
	if doc.Objects == nil {
		doc.Objects = map[string]document.SceneObject{}
	}
	return &doc, nil
}

// Save stores doc as the next version of projectID and returns that version.
func (s *Service) Save(ctx context.Context, projectID string, doc *document.Document) (int, error) {
	if err := typeid.Validate(projectID, typeid.PrefixProject); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidProject, err)
	}
	if doc == nil {
		return 0, ErrInvalidDocument
	}
	if err := validateForest(doc.Objects); err != nil {
		return 0, err
	}

	out := *doc
	out.Project.ID = projectID
	ts := s.now().UTC().Format(time.RFC3339)
	if out.Project.CreatedAt == "" {
		out.Project.CreatedAt = ts
	}
	out.Project.UpdatedAt = ts

	data, err := json.Marshal(out)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	snap, err := s.store.CreateSnapshot(ctx, projectID, data)
	if err != nil {
		return 0, err
	}
	return snap.Version, nil
}

// LoadForRoom adapts Latest to the collaboration hub's loader. Projects
// without snapshots start empty, and rooms whose id is not a project id (the
// playground) are never persisted.
func (s *Service) LoadForRoom(ctx context.Context, projectID string) (*document.Document, error) {
	doc, err := s.Latest(ctx, projectID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidProject) {
		return nil, nil
	}
	return doc, err
}

// SaveForRoom adapts Save to the collaboration hub's saver.
func (s *Service) SaveForRoom(ctx context.Context, projectID string, doc *document.Document) error {
	_, err := s.Save(ctx, projectID, doc)
	if errors.Is(err, ErrInvalidProject) {
		return nil
	}
	return err
}

// validateForest rejects parent links to missing objects and cycles.
func validateForest(objects map[string]document.SceneObject) error {
	for id, obj := range objects {
		if obj.ID != "" && obj.ID != id {
			return fmt.Errorf("%w: object key %s holds id %s", ErrInvalidDocument, id, obj.ID)
		}
		seen := map[string]bool{id: true}
		for p := obj.Parent(); p != ""; p = objects[p].Parent() {
			if _, ok := objects[p]; !ok {
				return fmt.Errorf("%w: %s has unknown parent %s", ErrInvalidDocument, id, p)
			}
			if seen[p] {
				return fmt.Errorf("%w: parent cycle through %s", ErrInvalidDocument, id)
			}
			seen[p] = true
		}
	}
	return nil
}
