package repository

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate() { c.n.Add(1) }

func TestFileWatcherInvalidatesOnExternalWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := newRepo(t)
	target := &countingInvalidator{}
	fw, err := NewFileWatcher(repo.Path(), target)
	require.NoError(t, err)
	fw.debounceDur = 30 * time.Millisecond

	require.NoError(t, fw.Start(context.Background()))
	defer fw.Stop()

	require.NoError(t, os.WriteFile(repo.Path(), []byte(`[]`), 0o644))
	require.Eventually(t, func() bool { return target.n.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	stats := fw.Stats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.GreaterOrEqual(t, stats.Invalidations, 1)
}

func TestFileWatcherIgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := newRepo(t)
	target := &countingInvalidator{}
	fw, err := NewFileWatcher(repo.Path(), target)
	require.NoError(t, err)
	fw.debounceDur = 30 * time.Millisecond
	require.NoError(t, fw.Start(context.Background()))

	require.NoError(t, os.WriteFile(repo.Path()+".other", []byte(`x`), 0o644))
	time.Sleep(150 * time.Millisecond)
	fw.Stop()

	assert.Equal(t, int32(0), target.n.Load())
	assert.Equal(t, 0, fw.Stats().Events)
}

func TestFileWatcherStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := newRepo(t)
	fw, err := NewFileWatcher(repo.Path(), &countingInvalidator{})
	require.NoError(t, err)
	require.NoError(t, fw.Start(context.Background()))
	fw.Stop()
	fw.Stop()
}
