package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rehber/rehber/internal/models"
	"github.com/rehber/rehber/internal/util/logger"
)

const (
	// DBFileName is the contact store inside the data directory.
	DBFileName = "db.json"
	backupFmt  = "db.backup.%d.json"
)

// JSONRepository stores all contacts in a single indented JSON array.
// Writes go through a temp file and rename so readers never observe a
// half-written document.
type JSONRepository struct {
	dir  string
	path string
	now  func() time.Time

	mu        sync.RWMutex
	cache     []models.Contact
	cached    bool
	retention RetentionPolicy
}

// NewJSONRepository creates the data directory when missing.
func NewJSONRepository(dataDir string) (*JSONRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dataDir, err)
	}
	return &JSONRepository{
		dir:  dataDir,
		path: filepath.Join(dataDir, DBFileName),
		now:  time.Now,
	}, nil
}

func (r *JSONRepository) Path() string { return r.path }

// Dir is the data directory holding the store and its backups.
func (r *JSONRepository) Dir() string { return r.dir }

func (r *JSONRepository) Load(ctx context.Context) ([]models.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	if r.cached {
		out := cloneAll(r.cache)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cached {
		list, err := r.readFile()
		if err != nil {
			return nil, err
		}
		r.cache = list
		r.cached = true
	}
	return cloneAll(r.cache), nil
}

func (r *JSONRepository) readFile() ([]models.Contact, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Contact{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Contact{}, nil
	}

	var list []models.Contact
	if err := json.Unmarshal(data, &list); err != nil {
		logger.Errorf("contact store %s unreadable: %v", r.path, err)
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if list == nil {
		list = []models.Contact{}
	}
	return list, nil
}

func (r *JSONRepository) Save(ctx context.Context, contacts []models.Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}

	data, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode contacts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writeFileAtomic(r.path, data, 0o644); err != nil {
		r.cached = false
		return err
	}
	r.cache = cloneAll(contacts)
	r.cached = true
	return nil
}

func (r *JSONRepository) Backup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", r.path, err)
	}

	dst := filepath.Join(r.dir, fmt.Sprintf(backupFmt, r.now().UnixMilli()))
	if err := writeFileAtomic(dst, data, 0o644); err != nil {
		return "", err
	}
	if _, err := r.prune(r.retention); err != nil {
		logger.Warnf("backup retention: %v", err)
	}
	return dst, nil
}

func (r *JSONRepository) Invalidate() {
	r.mu.Lock()
	r.cached = false
	r.cache = nil
	r.mu.Unlock()
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func cloneAll(list []models.Contact) []models.Contact {
	out := make([]models.Contact, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}

