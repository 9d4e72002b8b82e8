package staging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.Gray{Y: uint8(x * y * 16)})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestStage_WritesPNGAndReleaseRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.png")
	s := NewStager(path)

	staged, err := s.Stage(context.Background(), jpegBytes(t))
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if staged.Path != path {
		t.Errorf("expected path %s, got %s", path, staged.Path)
	}
	if staged.Format != JPEG {
		t.Errorf("expected source format jpeg, got %s", staged.Format)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
	if _, err := png.Decode(f); err != nil {
		t.Errorf("staged file is not png: %v", err)
	}
	f.Close()

	staged.Release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected staged file removed, stat err=%v", err)
	}

	staged.Release()
}

func TestStage_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.png")
	s := NewStager(path)

	_, err := s.Stage(context.Background(), []byte("not an image"))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be created for an undecodable upload")
	}

	// the stager must not stay locked after a failure
	staged, err := s.Stage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("Stage after failure: %v", err)
	}
	staged.Release()
}

func TestStage_OneStagedFileAtATime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.png")
	s := NewStager(path)

	first, err := s.Stage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	done := make(chan *Staged)
	go func() {
		second, err := s.Stage(context.Background(), pngBytes(t))
		if err != nil {
			t.Errorf("second Stage failed: %v", err)
		}
		done <- second
	}()

	select {
	case <-done:
		t.Fatal("second Stage returned while first was still held")
	case <-time.After(50 * time.Millisecond):
	}

	first.Release()

	select {
	case second := <-done:
		if second != nil {
			second.Release()
		}
	case <-time.After(time.Second):
		t.Fatal("second Stage did not proceed after release")
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected no staged file after both releases")
	}
}

func TestStage_GivesUpWhenContextDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staged.png")
	s := NewStager(path)

	first, err := s.Stage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	second, err := s.Stage(ctx, jpegBytes(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if second != nil {
		t.Error("expected no staged file for an expired request")
	}

	// the held file is untouched by the expired request
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("held staged file missing: %v", err)
	}
	if _, format, err := image.Decode(f); err != nil || format != PNG {
		t.Errorf("held staged file changed: format=%s err=%v", format, err)
	}
	f.Close()

	first.Release()
	third, err := s.Stage(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("Stage after expired wait: %v", err)
	}
	third.Release()
}

func TestAllowedExtension(t *testing.T) {
	tests := map[string]bool{
		"a.png":    true,
		"b.JPG":    true,
		"c.jpeg":   true,
		"d.gif":    false,
		"e":        false,
		"f.png.sh": false,
	}
	for name, want := range tests {
		if got := AllowedExtension(name); got != want {
			t.Errorf("AllowedExtension(%q) = %v, want %v", name, got, want)
		}
	}
}
