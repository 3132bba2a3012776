package helpers

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/cncwatch/engine"
)

// ============================================================================
// STORE TESTS
// ============================================================================

const twoRows = "timestamp,machine_status,production_count\n" +
	"2024-01-01 08:00:00,Running,5\n" +
	"2024-01-01 08:01:00,Fault,0\n"

const threeRows = twoRows + "2024-01-01 08:02:00,Running,3\n"

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestStoreMemoizes(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cnc.csv")
	writeFile(t, p, twoRows)

	var attempts int
	store := NewStore(NewLoader(), p, WithReloadHook(func(*engine.Dataset, error, time.Duration) { attempts++ }))

	_, err := store.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)

	first, err := store.Get(context.Background())
	require.NoError(t, err)
	writeFile(t, p, threeRows)
	second, err := store.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 2, second.Len())
	assert.Equal(t, 1, attempts)
	assert.Equal(t, int64(1), store.Loads())
}

func TestStoreConcurrentGet(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cnc.csv")
	writeFile(t, p, threeRows)
	store := NewStore(NewLoader(), p)

	var wg sync.WaitGroup
	results := make([]*engine.Dataset, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = store.Get(context.Background())
		}(i)
	}
	wg.Wait()

	for _, ds := range results {
		assert.Same(t, results[0], ds)
	}
	assert.Equal(t, int64(1), store.Loads())
}

func TestStoreReloadKeepsPreviousOnFailure(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cnc.csv")
	writeFile(t, p, twoRows)
	store := NewStore(NewLoader(), p)

	first, err := store.Get(context.Background())
	require.NoError(t, err)

	writeFile(t, p, "timestamp,machine_status,production_count\nlater,Running,1\n")
	_, err = store.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, engine.IsLoadError(err, engine.KindParse))

	current, err := store.Current()
	require.NoError(t, err)
	assert.Same(t, first, current)
	assert.Equal(t, int64(1), store.Failures())

	writeFile(t, p, threeRows)
	reloaded, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Len())
	assert.Equal(t, 2, first.Len(), "old snapshot is untouched")
}

func TestStoreWatchReloadsOnWrite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cnc.csv")
	writeFile(t, p, twoRows)
	store := NewStore(NewLoader(), p, WithDebounce(20*time.Millisecond))
	_, err := store.Get(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, p, threeRows)

	assert.Eventually(t, func() bool {
		ds, err := store.Current()
		return err == nil && ds.Len() == 3
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestStoreWatchCoalescesBurst(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cnc.csv")
	writeFile(t, p, twoRows)

	const debounce = 500 * time.Millisecond
	var attempts atomic.Int32
	store := NewStore(NewLoader(), p,
		WithDebounce(debounce),
		WithReloadHook(func(*engine.Dataset, error, time.Duration) { attempts.Add(1) }),
	)
	assert.Equal(t, p, store.URI())
	_, err := store.Get(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	for _, body := range []string{twoRows, threeRows, twoRows, threeRows} {
		writeFile(t, p, body)
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return attempts.Load() == 2 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(2 * debounce)
	assert.Equal(t, int32(2), attempts.Load(), "one reload per burst")
	assert.Zero(t, store.Failures())

	ds, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	cancel()
	assert.NoError(t, <-done)
}

func TestStoreWatchRejectsRemote(t *testing.T) {
	store := NewStore(NewLoader(), "s3://bucket/cnc.csv")
	assert.Error(t, store.Watch(context.Background()))
}
