package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// A Blob is a fetched resource held in memory, ready to be persisted by a Sink.
type Blob struct {
	ContentType string
	Data        []byte
}

// A Sink receives the effects of a delivery. Strategies never touch the filesystem
// or the user-facing surface themselves; they only call the sink, so tests and the
// HTTP session layer can substitute their own.
type Sink interface {
	// OpenTab hands the URL off for the user to follow directly instead of
	// receiving a saved file. Implementations must not fail.
	OpenTab(ctx context.Context, url string) error

	// SaveBlob persists already-fetched bytes under filename, returning the
	// materialized path when the sink writes locally.
	SaveBlob(ctx context.Context, filename string, blob Blob) (string, error)

	// SaveLink delivers the resource at url straight to filename, fetching it out
	// of band. Returns the materialized path when the sink writes locally.
	SaveLink(ctx context.Context, filename string, url string) (string, error)
}

// LocalSink materializes deliveries in a target directory, staging each file
// through a temporary name in the same directory so the final rename is atomic.
type LocalSink struct {
	targetDir  string
	client     *http.Client
	tap        io.Writer
	handoffURL string
}

type LocalSinkOption func(*LocalSink)

func WithClient(client *http.Client) LocalSinkOption {
	return func(s *LocalSink) {
		s.client = client
	}
}

// WithTap mirrors bytes fetched out of band by SaveLink into w, for progress
// tracking. SaveBlob bytes are not mirrored; the strategy that fetched them
// already counted them.
func WithTap(w io.Writer) LocalSinkOption {
	return func(s *LocalSink) {
		s.tap = w
	}
}

func NewLocalSink(targetDir string, opts ...LocalSinkOption) (*LocalSink, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create target dir: %w", err)
	}
	s := &LocalSink{
		targetDir: targetDir,
		client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *LocalSink) OpenTab(ctx context.Context, url string) error {
	s.handoffURL = url
	return nil
}

// HandoffURL is the URL recorded by OpenTab, empty if the delivery never fell
// through to the handoff.
func (s *LocalSink) HandoffURL() string {
	return s.handoffURL
}

func (s *LocalSink) SaveBlob(ctx context.Context, filename string, blob Blob) (string, error) {
	return s.stage(filename, &readerContext{ctx, bytes.NewReader(blob.Data)})
}

func (s *LocalSink) SaveLink(ctx context.Context, filename string, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}
	stream := io.Reader(&readerContext{ctx, resp.Body})
	if s.tap != nil {
		stream = io.TeeReader(stream, s.tap)
	}
	return s.stage(filename, stream)
}

func (s *LocalSink) stage(filename string, stream io.Reader) (string, error) {
	// Target names are always flat; anything path-like collapses to its base.
	filename = filepath.Base(filename)
	f, err := os.CreateTemp(s.targetDir, ".pngnest-*")
	if err != nil {
		return "", fmt.Errorf("failed to stage download: %w", err)
	}
	tempName := f.Name()
	if _, err := io.Copy(f, stream); err != nil {
		f.Close()
		os.Remove(tempName)
		return "", fmt.Errorf("failed to save stream: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("failed to finalize download: %w", err)
	}
	target := filepath.Join(s.targetDir, filename)
	if err := os.Rename(tempName, target); err != nil {
		os.Remove(tempName)
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	return target, nil
}
