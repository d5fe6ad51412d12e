package project

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/sculpt/internal/db"
	"github.com/inamate/sculpt/internal/document"
	"github.com/inamate/sculpt/internal/typeid"
)

// memoryStore keeps snapshots per project in insertion order.
type memoryStore struct {
	snaps map[string][]db.Snapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snaps: make(map[string][]db.Snapshot)}
}

func (m *memoryStore) GetLatestSnapshot(ctx context.Context, projectID string) (db.Snapshot, error) {
	list := m.snaps[projectID]
	if len(list) == 0 {
		return db.Snapshot{}, db.ErrNotFound
	}
	return list[len(list)-1], nil
}

func (m *memoryStore) CreateSnapshot(ctx context.Context, projectID string, doc json.RawMessage) (db.Snapshot, error) {
	s := db.Snapshot{
		ID:        typeid.NewSnapshotID(),
		ProjectID: projectID,
		Version:   len(m.snaps[projectID]) + 1,
		Document:  doc,
		CreatedAt: time.Now(),
	}
	m.snaps[projectID] = append(m.snaps[projectID], s)
	return s, nil
}

func newTestService() (*Service, *memoryStore) {
	store := newMemoryStore()
	s := NewService(store)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s, store
}

func TestSaveAndLatest(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	projectID := typeid.NewProjectID()

	_, err := s.Latest(ctx, projectID)
	assert.ErrorIs(t, err, ErrNotFound)

	doc := document.NewSampleDocument("ignored")
	v, err := s.Save(ctx, projectID, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = s.Save(ctx, projectID, doc)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	got, err := s.Latest(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, projectID, got.Project.ID)
	assert.Equal(t, 2, got.Project.Version)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.Project.UpdatedAt)
	assert.Len(t, got.Objects, len(doc.Objects))
}

func TestSaveRejects(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()

	_, err := s.Save(ctx, "proj_playground", document.NewEmptyDocument("x", "x"))
	assert.ErrorIs(t, err, ErrInvalidProject)

	projectID := typeid.NewProjectID()
	_, err = s.Save(ctx, projectID, nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	doc := document.NewEmptyDocument(projectID, "x")
	orphan := document.NewObject("a", document.ObjectTypeBox)
	missing := "nope"
	orphan.ParentID = &missing
	doc.Objects["a"] = orphan
	_, err = s.Save(ctx, projectID, doc)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	assert.Empty(t, store.snaps)
}

func TestValidateForest(t *testing.T) {
	link := func(id, parent string) document.SceneObject {
		obj := document.NewObject(id, document.ObjectTypeBox)
		if parent != "" {
			obj.ParentID = &parent
		}
		return obj
	}

	assert.NoError(t, validateForest(map[string]document.SceneObject{
		"r": link("r", ""), "a": link("a", "r"), "b": link("b", "a"),
	}))
	assert.ErrorIs(t, validateForest(map[string]document.SceneObject{
		"a": link("a", "b"), "b": link("b", "a"),
	}), ErrInvalidDocument)
	assert.ErrorIs(t, validateForest(map[string]document.SceneObject{
		"a": link("a", "a"),
	}), ErrInvalidDocument)
	assert.ErrorIs(t, validateForest(map[string]document.SceneObject{
		"a": link("other", ""),
	}), ErrInvalidDocument)
}

func TestRoomAdapters(t *testing.T) {
	s, store := newTestService()
	ctx := context.Background()

	doc, err := s.LoadForRoom(ctx, "proj_playground")
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, s.SaveForRoom(ctx, "proj_playground", document.NewEmptyDocument("proj_playground", "x")))
	assert.Empty(t, store.snaps, "the playground is never persisted")

	projectID := typeid.NewProjectID()
	doc, err = s.LoadForRoom(ctx, projectID)
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, s.SaveForRoom(ctx, projectID, document.NewEmptyDocument(projectID, "x")))
	doc, err = s.LoadForRoom(ctx, projectID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.NotNil(t, doc.Objects)
}
