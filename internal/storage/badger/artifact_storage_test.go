package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/remixlab/remixd/internal/models"
)

func newTestStorage(t *testing.T) *ArtifactStorage {
	t.Helper()

	options := badgerhold.DefaultOptions
	options.Dir = t.TempDir()
	options.ValueDir = options.Dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewArtifactStorage(db, arbor.NewLogger()).(*ArtifactStorage)
}

func sampleArtifact(id string, createdAt time.Time) *models.Artifact {
	return &models.Artifact{
		ID:         id,
		Identifier: "dQw4w9WgXcQ",
		Variant:    "resample_up",
		Title:      "Test Track",
		FileName:   id + ".mp3",
		Format:     "mp3",
		Size:       1024,
		Reference:  "http://localhost:8080/artifacts/" + id,
		CreatedAt:  createdAt,
	}
}

func TestSaveAndGetArtifact(t *testing.T) {
	storage := newTestStorage(t)

	artifact := sampleArtifact("a1", time.Now())
	require.NoError(t, storage.SaveArtifact(artifact))

	got, err := storage.GetArtifact("a1")
	require.NoError(t, err)
	assert.Equal(t, artifact.Identifier, got.Identifier)
	assert.Equal(t, artifact.Variant, got.Variant)
	assert.Equal(t, artifact.Reference, got.Reference)
}

func TestSaveArtifactRequiresID(t *testing.T) {
	storage := newTestStorage(t)

	artifact := sampleArtifact("", time.Now())
	assert.Error(t, storage.SaveArtifact(artifact))
}

func TestGetArtifactNotFound(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.GetArtifact("missing")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestListArtifactsNewestFirst(t *testing.T) {
	storage := newTestStorage(t)

	now := time.Now()
	require.NoError(t, storage.SaveArtifact(sampleArtifact("old", now.Add(-time.Hour))))
	require.NoError(t, storage.SaveArtifact(sampleArtifact("new", now)))

	artifacts, err := storage.ListArtifacts()
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "new", artifacts[0].ID)
	assert.Equal(t, "old", artifacts[1].ID)
}
