package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mongodesk/backend/internal/domain"
	"github.com/mongodesk/backend/internal/infrastructure/logger"
)

func testDownloadConfig() DownloadConfig {
	return DownloadConfig{
		MaxRetries: 5,
		Backoff:    time.Millisecond,
		BackoffMax: 4 * time.Millisecond,
	}
}

// flakyServer fails the first failures GET requests with a 500 and then
// serves body.
func flakyServer(failures int32, body []byte) (*httptest.Server, *int32) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			return
		}
		n := atomic.AddInt32(&attempts, 1)
		if n <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}))
	return srv, &attempts
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	body := []byte("fake msi payload")
	srv, attempts := flakyServer(2, body)
	defer srv.Close()

	sink := &recordingSink{}
	d := NewDownloadService(sink, logger.Nop(), testDownloadConfig())

	dest := filepath.Join(t.TempDir(), "mongodb-installer.msi")
	if err := d.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if got := atomic.LoadInt32(attempts); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if string(data) != string(body) {
		t.Fatalf("destination content = %q, want %q", data, body)
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file left behind")
	}
}

func TestFetchFailsAfterMaxRetries(t *testing.T) {
	srv, attempts := flakyServer(100, nil)
	defer srv.Close()

	sink := &recordingSink{}
	d := NewDownloadService(sink, logger.Nop(), testDownloadConfig())

	dest := filepath.Join(t.TempDir(), "mongodb-installer.msi")
	err := d.Fetch(context.Background(), srv.URL, dest)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}

	if got := atomic.LoadInt32(attempts); got != 5 {
		t.Fatalf("attempts = %d, want 5", got)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("no file may exist at the final path after a failed download")
	}
	if _, statErr := os.Stat(dest + ".tmp"); !os.IsNotExist(statErr) {
		t.Fatal("temporary file left behind after a failed download")
	}
}

func TestFetchRejectsEmptyTransfer(t *testing.T) {
	// A "successful" transfer of zero bytes must count as a failure, not a
	// silent success.
	srv, _ := flakyServer(0, nil)
	defer srv.Close()

	sink := &recordingSink{}
	d := NewDownloadService(sink, logger.Nop(), testDownloadConfig())

	dest := filepath.Join(t.TempDir(), "mongodb-installer.msi")
	err := d.Fetch(context.Background(), srv.URL, dest)
	if !errors.Is(err, ErrDownloadFailed) {
		t.Fatalf("err = %v, want ErrDownloadFailed", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("no file may exist at the final path")
	}
}

func TestFetchProgressIsClampedAndTerminal(t *testing.T) {
	// HEAD reports a size smaller than the body actually is; percentages
	// must still stay within [0,100].
	body := make([]byte, 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "1024")
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	d := NewDownloadService(sink, logger.Nop(), testDownloadConfig())

	dest := filepath.Join(t.TempDir(), "mongodb-installer.msi")
	if err := d.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	events := sink.named(domain.EventDownloadProgress)
	if len(events) == 0 {
		t.Fatal("no download progress events were published")
	}
	for _, ev := range events {
		p := ev.Payload.(domain.DownloadProgress)
		if p.Percentage < 0 || p.Percentage > 100 {
			t.Fatalf("percentage %v out of range", p.Percentage)
		}
	}
	final := events[len(events)-1].Payload.(domain.DownloadProgress)
	if final.Percentage != 100 {
		t.Fatalf("final percentage = %v, want 100", final.Percentage)
	}
}

func TestFetchSurvivesMissingSizeProbe(t *testing.T) {
	body := []byte("payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	cfg := testDownloadConfig()
	cfg.SizeEstimate = 1024
	d := NewDownloadService(sink, logger.Nop(), cfg)

	dest := filepath.Join(t.TempDir(), "mongodb-installer.msi")
	if err := d.Fetch(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	events := sink.named(domain.EventDownloadProgress)
	if events[0].Payload.(domain.DownloadProgress).TotalBytes != 1024 {
		t.Fatalf("expected the configured size estimate to be used, got %+v", events[0].Payload)
	}
}
