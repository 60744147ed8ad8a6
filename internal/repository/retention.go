package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rehber/rehber/internal/util/logger"
)

// RetentionPolicy bounds how many store backups are kept. Zero values
// disable the corresponding rule. The newest backup is always kept.
type RetentionPolicy struct {
	Keep   int
	MaxAge time.Duration
}

func (p RetentionPolicy) enabled() bool { return p.Keep > 0 || p.MaxAge > 0 }

// SetRetention sets the policy applied after every Backup.
func (r *JSONRepository) SetRetention(p RetentionPolicy) {
	r.mu.Lock()
	r.retention = p
	r.mu.Unlock()
}

type backupFile struct {
	path  string
	taken time.Time
}

// backups lists db.backup.<unix-ms>.json files, newest first.
func (r *JSONRepository) backups() ([]backupFile, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var out []backupFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "db.backup.") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ms, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, "db.backup."), ".json"), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, backupFile{path: filepath.Join(r.dir, name), taken: time.UnixMilli(ms)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].taken.After(out[j].taken) })
	return out, nil
}

// PruneBackups deletes backups outside the retention policy and reports
// how many were removed.
func (r *JSONRepository) PruneBackups(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	policy := r.retention
	r.mu.RUnlock()
	return r.prune(policy)
}

func (r *JSONRepository) prune(policy RetentionPolicy) (int, error) {
	if !policy.enabled() {
		return 0, nil
	}
	list, err := r.backups()
	if err != nil {
		return 0, fmt.Errorf("list backups: %w", err)
	}
	now := r.now()
	removed := 0
	var errs []error
	for i, b := range list {
		if i == 0 {
			continue
		}
		tooMany := policy.Keep > 0 && i >= policy.Keep
		tooOld := policy.MaxAge > 0 && now.Sub(b.taken) > policy.MaxAge
		if !tooMany && !tooOld {
			continue
		}
		if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Infof("pruned %d old backups", removed)
	}
	return removed, errors.Join(errs...)
}
