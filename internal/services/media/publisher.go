package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/remixlab/remixd/internal/common"
	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/remixlab/remixd/internal/models"
	"github.com/ternarybob/arbor"
)

// LocalPublisher copies transformed audio into the served artifacts directory
// and records the artifact in storage. The returned reference is the URL
// clients download the result from.
type LocalPublisher struct {
	artifactsDir string
	baseURL      string
	storage      interfaces.ArtifactStorage
	logger       arbor.ILogger
}

// NewLocalPublisher creates a new LocalPublisher from publish configuration
func NewLocalPublisher(config *common.PublishConfig, storage interfaces.ArtifactStorage, logger arbor.ILogger) (*LocalPublisher, error) {
	if err := os.MkdirAll(config.ArtifactsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	return &LocalPublisher{
		artifactsDir: config.ArtifactsDir,
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		storage:      storage,
		logger:       logger,
	}, nil
}

// Publish moves the transformed file into the artifacts directory, persists
// its metadata, and returns the download reference.
func (p *LocalPublisher) Publish(ctx context.Context, media *interfaces.TransformedMedia) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.New().String()
	fileName := fmt.Sprintf("%s.%s", id, media.Format)
	destPath := filepath.Join(p.artifactsDir, fileName)

	size, err := copyFile(media.Path, destPath)
	if err != nil {
		return "", fmt.Errorf("failed to publish artifact: %w", err)
	}

	artifact := &models.Artifact{
		ID:         id,
		Identifier: media.Identifier,
		Variant:    media.Variant,
		Title:      media.Title,
		FileName:   fileName,
		Format:     media.Format,
		Size:       size,
		Reference:  fmt.Sprintf("%s/artifacts/%s", p.baseURL, id),
		CreatedAt:  time.Now(),
	}

	if err := p.storage.SaveArtifact(artifact); err != nil {
		os.Remove(destPath)
		return "", err
	}

	p.logger.Info().
		Str("artifact_id", id).
		Str("identifier", media.Identifier).
		Str("variant", media.Variant).
		Int("size", int(size)).
		Msg("Artifact published")

	return artifact.Reference, nil
}

// copyFile copies src to dst and returns the number of bytes written.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	size, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return 0, err
	}

	if err := out.Close(); err != nil {
		os.Remove(dst)
		return 0, err
	}

	return size, nil
}
