package interfaces

import "github.com/remixlab/remixd/internal/models"

// ArtifactStorage persists metadata for published artifacts.
type ArtifactStorage interface {
	SaveArtifact(artifact *models.Artifact) error
	GetArtifact(id string) (*models.Artifact, error)
	ListArtifacts() ([]*models.Artifact, error)
	Close() error
}
