package sink_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/chisel/pkg/sink"
)

func TestSubmitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nc")
	w := sink.New(path)

	require.NoError(t, w.Submit("G00 X0\n"))
	require.NoError(t, w.Wait())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "G00 X0\n", string(got))
	assert.Equal(t, sink.Stats{Completed: 1}, w.Stats())
}

func TestLargeContentIsChunked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nc")
	chunks := 0
	defer sink.SetChunkHook(func() { chunks++ })()

	content := strings.Repeat("G01 X1.000 Y2.000\n", 3*sink.ChunkSize/18+10)
	w := sink.New(path)
	require.NoError(t, w.Submit(content))
	require.NoError(t, w.Wait())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
	assert.Equal(t, 4, chunks)
}

func TestEmptyContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nc")
	w := sink.New(path)
	require.NoError(t, w.Submit(""))
	require.NoError(t, w.Wait())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRestartsCoalesce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.nc")
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	defer sink.SetChunkHook(func() {
		once.Do(func() {
			close(started)
			<-release
		})
	})()

	w := sink.New(path)
	require.NoError(t, w.Submit(strings.Repeat("a", 4*sink.ChunkSize)))
	<-started
	for _, s := range []string{"b", "c", "d"} {
		require.NoError(t, w.Submit(s))
	}
	close(release)
	require.NoError(t, w.Wait())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "d", string(got))
	assert.Equal(t, sink.Stats{Completed: 1, Cancelled: 1}, w.Stats())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".out.nc.*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "cancelled writes must not leave temporary files")
}

func TestWriteError(t *testing.T) {
	w := sink.New(filepath.Join(t.TempDir(), "missing", "out.nc"))
	require.NoError(t, w.Submit("x"))
	assert.Error(t, w.Wait())
}

func TestSubmitAfterClose(t *testing.T) {
	w := sink.New(filepath.Join(t.TempDir(), "out.nc"))
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Submit("x"), sink.ErrClosed)
}
