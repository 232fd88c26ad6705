package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mongodesk/backend/internal/core/ports"
	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

// Fallback when the size probe fails; progress is then approximate but the
// transfer itself is unaffected.
const defaultSizeEstimate = 500 * 1024 * 1024

type DownloadConfig struct {
	MaxRetries   int
	Backoff      time.Duration
	BackoffMax   time.Duration
	SizeEstimate int64
}

type downloadService struct {
	client *http.Client
	sink   ports.EventSink
	logger *logger.Logger
	cfg    DownloadConfig
}

func NewDownloadService(sink ports.EventSink, log *logger.Logger, cfg DownloadConfig) ports.Downloader {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 2 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.SizeEstimate <= 0 {
		cfg.SizeEstimate = defaultSizeEstimate
	}
	return &downloadService{
		client: &http.Client{},
		sink:   sink,
		logger: log,
		cfg:    cfg,
	}
}

// Fetch transfers url to dest with progress events and bounded retries. The
// transfer lands in a temporary sibling file and is promoted to dest only
// after the completed file verifies as nonempty, so dest never holds a
// partial artifact.
func (d *downloadService) Fetch(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	total := d.probeSize(ctx, url)
	d.publishProgress(0, total)

	tmp := dest + ".tmp"
	interval := d.cfg.Backoff

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			d.logger.Warnw("download_retrying",
				"attempt", attempt,
				"max_attempts", d.cfg.MaxRetries,
				"backoff", interval,
			)
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return fmt.Errorf("download cancelled: %w", ctx.Err())
			}
			interval *= 2
			if interval > d.cfg.BackoffMax {
				interval = d.cfg.BackoffMax
			}
		}

		err := d.transfer(ctx, url, tmp, total)
		if err == nil {
			err = d.promote(tmp, dest)
		}
		if err == nil {
			d.publishProgress(total, total)
			d.logger.Infow("download_completed", "url", url, "destination", dest)
			return nil
		}

		lastErr = err
		os.Remove(tmp)
		d.logger.Warnw("download_attempt_failed",
			"attempt", attempt,
			"max_attempts", d.cfg.MaxRetries,
			"error", err,
		)
		if ctx.Err() != nil {
			return fmt.Errorf("download cancelled: %w", ctx.Err())
		}
	}

	return fmt.Errorf("%w: %d attempts, last error: %v", ErrDownloadFailed, d.cfg.MaxRetries, lastErr)
}

// probeSize asks for Content-Length via HEAD. Best effort: any failure falls
// back to a fixed conservative estimate instead of failing the download.
func (d *downloadService) probeSize(ctx context.Context, url string) int64 {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return d.cfg.SizeEstimate
	}
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warnw("download_size_probe_failed", "url", url, "error", err)
		return d.cfg.SizeEstimate
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.ContentLength <= 0 {
		d.logger.Warnw("download_size_unknown", "url", url, "status", resp.StatusCode)
		return d.cfg.SizeEstimate
	}
	return resp.ContentLength
}

func (d *downloadService) transfer(ctx context.Context, url, tmp string, total int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to prepare request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status code: %d", resp.StatusCode)
	}

	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to open temporary file: %w", err)
	}
	defer out.Close()

	progress := &progressWriter{service: d, total: total}
	if _, err := io.Copy(out, io.TeeReader(resp.Body, progress)); err != nil {
		return fmt.Errorf("transfer interrupted: %w", err)
	}
	return out.Close()
}

// promote verifies the finished transfer and moves it to its final name.
// Rename first; fall back to copy-then-delete when the temp file sits on a
// different volume.
func (d *downloadService) promote(tmp, dest string) error {
	info, err := os.Stat(tmp)
	if err != nil {
		return ErrDownloadZeroSize
	}
	if info.Size() == 0 {
		return ErrDownloadZeroSize
	}

	if err := os.Rename(tmp, dest); err == nil {
		return nil
	}

	src, err := os.Open(tmp)
	if err != nil {
		return fmt.Errorf("failed to reopen temporary file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to copy to destination: %w", err)
	}
	if err := dst.Close(); err != nil {
		return err
	}
	os.Remove(tmp)
	return nil
}

func (d *downloadService) publishProgress(written, total int64) {
	pct := 0.0
	if total > 0 {
		pct = float64(written) / float64(total) * 100
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	d.sink.Publish(domain.Event{
		Name: domain.EventDownloadProgress,
		Payload: domain.DownloadProgress{
			BytesDownloaded: written,
			TotalBytes:      total,
			Percentage:      pct,
		},
	})
}

// progressWriter throttles progress events to a renderable rate: emit when
// at least one percentage point was gained or 500ms elapsed.
type progressWriter struct {
	service  *downloadService
	total    int64
	written  int64
	lastPct  float64
	lastEmit time.Time
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))

	pct := 0.0
	if w.total > 0 {
		pct = float64(w.written) / float64(w.total) * 100
	}
	now := time.Now()
	if pct-w.lastPct >= 1.0 || now.Sub(w.lastEmit) >= 500*time.Millisecond {
		w.service.publishProgress(w.written, w.total)
		w.lastPct = pct
		w.lastEmit = now
	}
	return len(p), nil
}
