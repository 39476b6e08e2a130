package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/remixlab/remixd/internal/common"
	"github.com/remixlab/remixd/internal/interfaces"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// YtDlpFetcher downloads source audio with yt-dlp. A shared rate limiter
// spaces out upstream requests across concurrent jobs.
type YtDlpFetcher struct {
	binary  string
	workDir string
	format  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  arbor.ILogger
}

// NewYtDlpFetcher creates a new YtDlpFetcher from media configuration
func NewYtDlpFetcher(config *common.MediaConfig, logger arbor.ILogger) (*YtDlpFetcher, error) {
	if err := os.MkdirAll(config.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	interval := config.RateLimit
	if interval <= 0 {
		interval = time.Second
	}

	return &YtDlpFetcher{
		binary:  config.FetcherPath,
		workDir: config.WorkDir,
		format:  config.AudioFormat,
		timeout: config.FetchTimeout,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
	}, nil
}

// Fetch downloads the audio for a video ID and returns the extracted file.
// Honors ctx cancellation both while waiting for a rate slot and while the
// subprocess runs.
func (f *YtDlpFetcher) Fetch(ctx context.Context, identifier string) (*interfaces.FetchedMedia, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	url := "https://www.youtube.com/watch?v=" + identifier
	outputTemplate := fmt.Sprintf("%s/%%(title)s-%%(id)s.%%(ext)s", f.workDir)

	args := []string{
		"--extract-audio",
		"--audio-format", f.format,
		"--audio-quality", "192K",
		"--no-playlist",
		"--no-progress",
		"--no-simulate",
		"--print", "title",
		"--print", "after_move:filepath",
		"--output", outputTemplate,
		url,
	}

	f.logger.Info().Str("identifier", identifier).Msg("Fetching source audio")

	cmd := exec.CommandContext(ctx, f.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, firstLine(stderr.String()))
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("yt-dlp produced unexpected output: %q", stdout.String())
	}
	title := strings.TrimSpace(lines[0])
	path := strings.TrimSpace(lines[len(lines)-1])

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("fetched file missing: %w", err)
	}

	f.logger.Info().
		Str("identifier", identifier).
		Str("title", title).
		Str("path", path).
		Msg("Source audio fetched")

	return &interfaces.FetchedMedia{
		Identifier: identifier,
		Title:      title,
		Path:       path,
		Format:     f.format,
	}, nil
}

// firstLine trims command output down to its first line for error messages.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
