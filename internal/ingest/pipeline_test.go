package ingest

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/imagefile"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
)

func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 50), G: uint8(y * 50), B: 200, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPipeline(t *testing.T) (*Pipeline, storage.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "images.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	files, err := imagefile.NewStore(filepath.Join(dir, "images"), filepath.Join(dir, "thumbs"))
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(store, files, embedding.NewMockEmbedder(8))
	return p, store, dir
}

func TestAddImage_Success(t *testing.T) {
	p, store, dir := newTestPipeline(t)
	ctx := context.Background()

	src := writeTestPNG(t, dir, "cat.png")
	res := p.AddImage(ctx, src, "cat.png", "a cat")
	if !res.Success {
		t.Fatalf("AddImage failed: %s", res.Error)
	}
	if res.Message != "Image 'cat.png' added successfully." {
		t.Errorf("message = %q", res.Message)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	rec, err := store.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Description != "a cat" {
		t.Errorf("description = %q, want preserved input", rec.Description)
	}
	if rec.OriginalFilename != "cat.png" {
		t.Errorf("original filename = %q", rec.OriginalFilename)
	}
	if len(rec.Embedding) != 8 {
		t.Errorf("embedding length = %d, want 8", len(rec.Embedding))
	}
}

func TestAddImage_DefaultDescription(t *testing.T) {
	p, store, dir := newTestPipeline(t)
	ctx := context.Background()

	for _, desc := range []string{"", "   ", "\t\n"} {
		src := writeTestPNG(t, dir, "blank.png")
		res := p.AddImage(ctx, src, "blank.png", desc)
		if !res.Success {
			t.Fatalf("AddImage failed: %s", res.Error)
		}
		rec, err := store.GetByID(ctx, res.ID)
		if err != nil {
			t.Fatal(err)
		}
		if rec.Description != models.DefaultDescription {
			t.Errorf("description for %q = %q, want default", desc, rec.Description)
		}
	}
}

func TestAddImage_InvalidImage(t *testing.T) {
	p, store, dir := newTestPipeline(t)
	ctx := context.Background()

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image at all"), 0644); err != nil {
		t.Fatal(err)
	}
	res := p.AddImage(ctx, bad, "bad.png", "desc")
	if res.Success {
		t.Fatal("expected failure for non-image payload")
	}
	if res.Error == "" {
		t.Error("expected error message")
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("record count = %d after rejected upload, want 0", n)
	}
}

func TestAddImage_StoredFilenameFormat(t *testing.T) {
	p, store, dir := newTestPipeline(t)
	ctx := context.Background()

	src := writeTestPNG(t, dir, "photo.png")
	res := p.AddImage(ctx, src, "photo.png", "d")
	if !res.Success {
		t.Fatal(res.Error)
	}
	rec, err := store.GetByID(ctx, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(rec.StoredFilename, "_photo.png") {
		t.Errorf("stored filename %q should end with original name", rec.StoredFilename)
	}
	if rec.StoredFilename == "photo.png" {
		t.Error("stored filename should carry a timestamp prefix")
	}
}

// failingEmbedder always errors, standing in for an unavailable model.
type failingEmbedder struct{}

func (failingEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return nil, errors.New("model unavailable")
}
func (failingEmbedder) EmbedImage(context.Context, string) ([]float32, error) {
	return nil, errors.New("model unavailable")
}
func (failingEmbedder) Dimensions() int { return 0 }
func (failingEmbedder) Close() error    { return nil }

func TestAddImage_EmbedderFailureLeavesOrphanFileOnly(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "images.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	imagesDir := filepath.Join(dir, "images")
	files, err := imagefile.NewStore(imagesDir, "")
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline(store, files, failingEmbedder{})
	ctx := context.Background()

	src := writeTestPNG(t, dir, "orphan.png")
	res := p.AddImage(ctx, src, "orphan.png", "d")
	if res.Success {
		t.Fatal("expected failure when embedder is down")
	}

	// no record...
	n, _ := store.Count(ctx)
	if n != 0 {
		t.Errorf("record count = %d, want 0", n)
	}
	// ...but the copied file remains
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("orphan file count = %d, want 1", len(entries))
	}
}
