// Package artifact turns narrative text into a persisted image
// artifact: generate, download, write locally, archive to the blob
// store, and journal the archive metadata. The whole chain is
// best-effort; a turn response never fails because of it.
package artifact

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/vkotenko/questd/internal/walrus"
)

const maxImageBytes = 20 << 20 // 20MB

// ImageGenerator produces a transient image URL for a text prompt.
// Implemented by assistant.Client.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// BlobStore archives raw bytes remotely. Implemented by walrus.Client.
type BlobStore interface {
	Store(ctx context.Context, data []byte) (walrus.StoreResult, error)
}

// Artifact is one locally persisted image and, after a successful
// archive, its remote storage identifiers.
type Artifact struct {
	Key       string
	LocalPath string
	BlobID    string
	EndEpoch  int64
}

// Pipeline drives the generate, persist, archive, journal chain.
type Pipeline struct {
	gen     ImageGenerator
	blobs   BlobStore // optional; nil disables remote archiving
	journal *Journal
	dir     string
	httpc   *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewPipeline creates a Pipeline writing images under dir and
// journaling archives into dir's manifest.json. blobs may be nil, in
// which case artifacts are only persisted locally.
func NewPipeline(gen ImageGenerator, blobs BlobStore, dir string) *Pipeline {
	return &Pipeline{
		gen:     gen,
		blobs:   blobs,
		journal: NewJournal(filepath.Join(dir, "manifest.json")),
		dir:     dir,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
		now:     time.Now,
	}
}

// Key builds the timestamp-derived artifact key, ISO8601 with colons
// replaced by dashes so it is filesystem-safe on every platform.
func Key(t time.Time) string {
	return "dnd_" + t.UTC().Format("2006-01-02T15-04-05.000Z") + ".png"
}

// Produce runs the full chain for one narrative. It returns the image
// URL and true when generation and local persistence both succeeded;
// archive and journal failures only degrade (logged, artifact stays
// local). On any failure before persistence it returns ("", false),
// never an error, since the image is secondary to the turn response.
func (p *Pipeline) Produce(ctx context.Context, narrative string) (string, bool) {
	url, err := p.gen.GenerateImage(ctx, narrative)
	if err != nil {
		p.logger.Warn("image generation failed", "error", err)
		return "", false
	}

	art, err := p.PersistLocally(ctx, url)
	if err != nil {
		p.logger.Warn("image persistence failed", "url", url, "error", err)
		return "", false
	}

	if p.blobs == nil {
		return url, true
	}

	data, err := os.ReadFile(art.LocalPath)
	if err != nil {
		p.logger.Warn("reading persisted image failed", "path", art.LocalPath, "error", err)
		return url, true
	}

	res, err := p.ArchiveRemote(ctx, data)
	if err != nil {
		p.logger.Warn("image archive failed", "key", art.Key, "error", err)
		return url, true
	}

	if err := p.journal.Record(art.Key, Entry{BlobID: res.BlobID, EndEpoch: res.EndEpoch}); err != nil {
		p.logger.Warn("manifest update failed", "key", art.Key, "error", err)
		return url, true
	}

	p.logger.Info("artifact archived", "key", art.Key, "blob_id", res.BlobID, "end_epoch", res.EndEpoch, "reused", res.Reused)
	return url, true
}

// PersistLocally downloads the image at url and writes it under a
// fresh timestamp-derived key in the pipeline's image directory.
func (p *Pipeline) PersistLocally(ctx context.Context, url string) (Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Artifact{}, fmt.Errorf("building download request: %w", err)
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return Artifact{}, fmt.Errorf("downloading image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Artifact{}, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return Artifact{}, fmt.Errorf("reading image body: %w", err)
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("creating image dir: %w", err)
	}

	key := Key(p.now())
	path := filepath.Join(p.dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("writing image file: %w", err)
	}

	return Artifact{Key: key, LocalPath: path}, nil
}

// ArchiveRemote uploads the bytes to the blob store.
func (p *Pipeline) ArchiveRemote(ctx context.Context, data []byte) (walrus.StoreResult, error) {
	return p.blobs.Store(ctx, data)
}

// Manifest exposes the journal for inspection (status surfaces, tests).
func (p *Pipeline) Manifest() *Journal {
	return p.journal
}
