package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// ImagesDirName is the photo directory inside the data directory.
	ImagesDirName = "contact_images"
	// ImagesURLPrefix is where stored photos are served from.
	ImagesURLPrefix = "/" + ImagesDirName + "/"
)

var (
	slugUnsafe = regexp.MustCompile(`[^a-z0-9]`)
	extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
)

// FileImageStore writes photos to <data>/contact_images.
type FileImageStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewFileImageStore(dataDir string, maxBytes int64) (*FileImageStore, error) {
	dir := filepath.Join(dataDir, ImagesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir %s: %w", dir, err)
	}
	return &FileImageStore{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *FileImageStore) Dir() string { return s.dir }

// Slug lowercases name and replaces anything outside [a-z0-9] with '_'.
func Slug(name string) string {
	s := slugUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	if s == "" {
		return "contact"
	}
	return s
}

// NormalizeExt returns a safe ".ext" or ".jpg" when ext is unusable.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !extPattern.MatchString(ext) {
		return ".jpg"
	}
	return ext
}

const maxNameAttempts = 5

// Save stores the body as <slug>_<unix-ms><ext> and returns its URL. When
// that name is taken a short random tag is added: <slug>_<unix-ms>_<tag><ext>.
func (s *FileImageStore) Save(ctx context.Context, name, ext string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, fileName, err := s.create(Slug(name), s.now().UnixMilli(), NormalizeExt(ext))
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, fileName)

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case err != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write image %s: %w", fileName, err)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("close image %s: %w", fileName, closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = os.Remove(path)
		return "", ErrImageTooLarge
	}
	return ImagesURLPrefix + fileName, nil
}

func (s *FileImageStore) create(slug string, ms int64, ext string) (*os.File, string, error) {
	fileName := fmt.Sprintf("%s_%d%s", slug, ms, ext)
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(filepath.Join(s.dir, fileName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		switch {
		case err == nil:
			return f, fileName, nil
		case !errors.Is(err, fs.ErrExist) || attempt+1 >= maxNameAttempts:
			return nil, "", fmt.Errorf("create image %s: %w", fileName, err)
		}
		fileName = fmt.Sprintf("%s_%d_%s%s", slug, ms, uuid.NewString()[:8], ext)
	}
}

// ErrImageTooLarge is returned when an upload exceeds the configured limit.
var ErrImageTooLarge = errors.New("repository: image too large")

// Remove deletes the file behind a /contact_images/ URL. Other URLs (data
// URIs, remote links) are ignored; a file that is already gone is not an error.
func (s *FileImageStore) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !strings.HasPrefix(url, ImagesURLPrefix) {
		return nil
	}
	name := strings.TrimPrefix(url, ImagesURLPrefix)
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return ErrInvalidImagePath
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove image %s: %w", name, err)
	}
	return nil
}
