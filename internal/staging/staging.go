package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	PNG  = "png"
	JPEG = "jpeg"
	JPG  = "jpg"
)

var ErrUnsupportedImage = errors.New("unsupported image")

// Stager writes uploads to a single fixed path. Only one staged file can be
// alive at a time: Stage blocks until the previous Staged is released or the
// caller's context is done.
type Stager struct {
	path string
	slot chan struct{}
}

func NewStager(path string) *Stager {
	return &Stager{path: path, slot: make(chan struct{}, 1)}
}

func (s *Stager) Path() string {
	return s.path
}

type Staged struct {
	Path   string
	Format string

	release func()
	once    sync.Once
}

// Stage decodes data as png or jpeg and re-encodes it as png at the stager path.
// The caller must Release the result.
func (s *Stager) Stage(ctx context.Context, data []byte) (*Staged, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for staging slot: %w", ctx.Err())
	}

	if err := writePNG(s.path, img); err != nil {
		_ = os.Remove(s.path)
		<-s.slot
		return nil, err
	}

	return &Staged{
		Path:   s.path,
		Format: format,
		release: func() {
			_ = os.Remove(s.path)
			<-s.slot
		},
	}, nil
}

// Release removes the staged file. Safe to call more than once.
func (st *Staged) Release() {
	st.once.Do(st.release)
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create staged file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode staged image: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close staged file: %w", err)
	}
	return nil
}

// AllowedExtension reports whether the upload filename has an accepted extension.
func AllowedExtension(filename string) bool {
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".") {
	case PNG, JPEG, JPG:
		return true
	}
	return false
}
