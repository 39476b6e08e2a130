package badger

import (
	"fmt"
	"sort"

	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/remixlab/remixd/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// ErrArtifactNotFound is returned when no artifact exists for an ID.
var ErrArtifactNotFound = fmt.Errorf("artifact not found")

// ArtifactStorage implements the ArtifactStorage interface for Badger
type ArtifactStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArtifactStorage creates a new ArtifactStorage instance
func NewArtifactStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArtifactStorage {
	return &ArtifactStorage{
		db:     db,
		logger: logger,
	}
}

// SaveArtifact inserts or updates an artifact record
func (s *ArtifactStorage) SaveArtifact(artifact *models.Artifact) error {
	if artifact.ID == "" {
		return fmt.Errorf("artifact ID is required")
	}

	if err := s.db.Store().Upsert(artifact.ID, artifact); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}

	s.logger.Debug().
		Str("artifact_id", artifact.ID).
		Str("identifier", artifact.Identifier).
		Str("variant", artifact.Variant).
		Msg("Artifact saved")

	return nil
}

// GetArtifact retrieves an artifact by ID
func (s *ArtifactStorage) GetArtifact(id string) (*models.Artifact, error) {
	var artifact models.Artifact
	err := s.db.Store().Get(id, &artifact)
	if err == badgerhold.ErrNotFound {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	return &artifact, nil
}

// ListArtifacts returns all artifact records, newest first
func (s *ArtifactStorage) ListArtifacts() ([]*models.Artifact, error) {
	var artifacts []*models.Artifact
	if err := s.db.Store().Find(&artifacts, nil); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})

	return artifacts, nil
}

// Close closes the underlying database connection
func (s *ArtifactStorage) Close() error {
	return s.db.Close()
}
