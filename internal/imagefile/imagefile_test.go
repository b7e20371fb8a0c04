package imagefile

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

// writeTestPNG writes a small valid PNG and returns its path.
func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
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

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	good := writeTestPNG(t, dir, "good.png")
	if err := Validate(good); err != nil {
		t.Errorf("valid PNG rejected: %v", err)
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("this is not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	err := Validate(bad)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("err = %v, want ErrInvalidImage", err)
	}
}

func TestStoredFilename(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	name := StoredFilename("holiday photo.jpg", now)

	if !strings.HasPrefix(name, "20250314_150926_") {
		t.Errorf("missing timestamp prefix: %s", name)
	}
	if !strings.HasSuffix(name, "_holiday photo.jpg") {
		t.Errorf("missing original name: %s", name)
	}
	matched, _ := regexp.MatchString(`^20250314_150926_[0-9a-f]{8}_holiday photo\.jpg$`, name)
	if !matched {
		t.Errorf("unexpected format: %s", name)
	}
}

func TestStoredFilename_SameSecondNoCollision(t *testing.T) {
	now := time.Now()
	a := StoredFilename("cat.png", now)
	b := StoredFilename("cat.png", now)
	if a == b {
		t.Errorf("two uploads in the same second collided: %s", a)
	}
}

func TestStoredFilename_StripsPath(t *testing.T) {
	now := time.Now()
	name := StoredFilename("../../etc/passwd", now)
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		t.Errorf("path components leaked into stored name: %s", name)
	}
	name = StoredFilename("", now)
	if !strings.HasSuffix(name, "_image") {
		t.Errorf("empty original name: got %s", name)
	}
}

func TestStoreSaveAndThumbnail(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "images"), filepath.Join(dir, "thumbs"))
	if err != nil {
		t.Fatal(err)
	}

	src := writeTestPNG(t, dir, "src.png")
	stored := StoredFilename("src.png", time.Now())
	dstPath, err := store.Save(src, stored)
	if err != nil {
		t.Fatal(err)
	}
	if dstPath != store.Path(stored) {
		t.Errorf("path mismatch: %s vs %s", dstPath, store.Path(stored))
	}

	srcData, _ := os.ReadFile(src)
	dstData, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(srcData) != string(dstData) {
		t.Error("copied bytes differ from source")
	}

	thumbPath, err := store.CreateThumbnail(dstPath, 7)
	if err != nil {
		t.Fatal(err)
	}
	if thumbPath != store.ThumbnailPath(7) {
		t.Errorf("thumbnail path mismatch: %s", thumbPath)
	}
	if _, err := os.Stat(thumbPath); err != nil {
		t.Errorf("thumbnail not written: %v", err)
	}
}

func TestStoreSave_MissingSource(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "images"), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(filepath.Join(dir, "nope.png"), "x.png"); err == nil {
		t.Error("expected error for missing source")
	}
}
