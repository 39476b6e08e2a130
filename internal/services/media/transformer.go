package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/remixlab/remixd/internal/common"
	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// FFmpegTransformer applies catalog effect chains with ffmpeg.
type FFmpegTransformer struct {
	binary    string
	outputDir string
	logger    arbor.ILogger
}

// NewFFmpegTransformer creates a new FFmpegTransformer from transform configuration
func NewFFmpegTransformer(config *common.TransformConfig, logger arbor.ILogger) (*FFmpegTransformer, error) {
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &FFmpegTransformer{
		binary:    config.FFmpegPath,
		outputDir: config.OutputDir,
		logger:    logger,
	}, nil
}

// Apply runs the effect chain named by variant over the fetched audio.
// Output lands in the output directory as <identifier>-<variant>.<format>.
func (t *FFmpegTransformer) Apply(ctx context.Context, media *interfaces.FetchedMedia, variant string) (*interfaces.TransformedMedia, error) {
	v, err := LookupVariant(variant)
	if err != nil {
		return nil, err
	}

	outputPath := filepath.Join(t.outputDir,
		fmt.Sprintf("%s-%s.%s", media.Identifier, variant, media.Format))

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", media.Path,
		"-af", v.Filtergraph,
		outputPath,
	}

	t.logger.Info().
		Str("identifier", media.Identifier).
		Str("variant", variant).
		Msg("Applying effect chain")

	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, firstLine(stderr.String()))
	}

	return &interfaces.TransformedMedia{
		Identifier: media.Identifier,
		Variant:    variant,
		Title:      media.Title,
		Path:       outputPath,
		Format:     media.Format,
	}, nil
}
