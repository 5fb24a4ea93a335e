package artifact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vkotenko/questd/internal/walrus"
)

func testTime(i int) time.Time {
	return time.Date(2024, 11, 2, 10, 15, 30, i*int(time.Millisecond), time.UTC)
}

type mockGenerator struct {
	url string
	err error
}

func (m *mockGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return m.url, m.err
}

type mockBlobs struct {
	result walrus.StoreResult
	err    error
	calls  int
}

func (m *mockBlobs) Store(ctx context.Context, data []byte) (walrus.StoreResult, error) {
	m.calls++
	return m.result, m.err
}

func TestKey_Format(t *testing.T) {
	got := Key(testTime(0))
	want := "dnd_2024-11-02T10-15-30.000Z.png"
	if got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
	if strings.ContainsRune(got, ':') {
		t.Errorf("Key() contains a colon: %q", got)
	}
}

func TestProduce_FullChain(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-png"))
	}))
	defer imgSrv.Close()

	dir := t.TempDir()
	blobs := &mockBlobs{result: walrus.StoreResult{BlobID: "blob-1", EndEpoch: 9}}
	p := NewPipeline(&mockGenerator{url: imgSrv.URL + "/img.png"}, blobs, dir)
	p.now = func() time.Time { return testTime(0) }

	url, ok := p.Produce(context.Background(), "A dragon circles the tower.")
	if !ok {
		t.Fatal("Produce() ok = false, want success")
	}
	if url != imgSrv.URL+"/img.png" {
		t.Errorf("Produce() url = %q", url)
	}

	localPath := filepath.Join(dir, Key(testTime(0)))
	data, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("local artifact not written: %v", err)
	}
	if string(data) != "fake-png" {
		t.Errorf("local artifact = %q, want downloaded bytes", data)
	}

	if blobs.calls != 1 {
		t.Errorf("blob store calls = %d, want 1", blobs.calls)
	}

	manifest, err := p.Manifest().Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	entry, ok := manifest[Key(testTime(0))]
	if !ok {
		t.Fatal("manifest missing artifact entry")
	}
	if entry.BlobID != "blob-1" || entry.EndEpoch != 9 {
		t.Errorf("manifest entry = %+v, want blob-1/9", entry)
	}
}

func TestProduce_GenerationFailureDegrades(t *testing.T) {
	p := NewPipeline(&mockGenerator{err: errors.New("model overloaded")}, nil, t.TempDir())

	url, ok := p.Produce(context.Background(), "narrative")
	if ok || url != "" {
		t.Errorf("Produce() = (%q, %v), want degraded empty result", url, ok)
	}
}

func TestProduce_DownloadFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewPipeline(&mockGenerator{url: srv.URL + "/gone.png"}, nil, t.TempDir())

	if _, ok := p.Produce(context.Background(), "narrative"); ok {
		t.Error("Produce() ok = true, want degraded on download failure")
	}
}

func TestProduce_ArchiveFailureKeepsLocalResult(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-png"))
	}))
	defer imgSrv.Close()

	dir := t.TempDir()
	blobs := &mockBlobs{err: errors.New("publisher down")}
	p := NewPipeline(&mockGenerator{url: imgSrv.URL + "/img.png"}, blobs, dir)
	p.now = func() time.Time { return testTime(0) }

	url, ok := p.Produce(context.Background(), "narrative")
	if !ok || url == "" {
		t.Fatalf("Produce() = (%q, %v); archive failure must not lose the image", url, ok)
	}

	manifest, _ := p.Manifest().Snapshot()
	if len(manifest) != 0 {
		t.Errorf("manifest = %v, want no entry after failed archive", manifest)
	}
}

func TestProduce_NoBlobStore(t *testing.T) {
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-png"))
	}))
	defer imgSrv.Close()

	p := NewPipeline(&mockGenerator{url: imgSrv.URL + "/img.png"}, nil, t.TempDir())

	if _, ok := p.Produce(context.Background(), "narrative"); !ok {
		t.Error("Produce() ok = false; local-only mode should succeed")
	}
}
