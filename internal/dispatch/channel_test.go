package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcondev/print-bridge/internal/printer"
)

func TestChannelSet_Build(t *testing.T) {
	set := ChannelSet{Spooler: &fakeSpooler{}, Temp: &TempStore{Dir: t.TempDir()}}

	channels, err := set.Build(nil)
	require.NoError(t, err)
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = c.Name()
	}
	assert.Equal(t, DefaultChannelOrder, names)

	channels, err = set.Build([]string{"Native", " ipp "})
	require.NoError(t, err)
	assert.Equal(t, ChannelNative, channels[0].Name())
	assert.Equal(t, ChannelIPP, channels[1].Name())

	_, err = set.Build([]string{"ipp", "ipp"})
	assert.Error(t, err)

	_, err = set.Build([]string{"fax"})
	assert.Error(t, err)

	_, err = ChannelSet{}.Build([]string{"native"})
	assert.Error(t, err)
}

func TestValidChannelName(t *testing.T) {
	assert.True(t, ValidChannelName("IPP"))
	assert.True(t, ValidChannelName("fallback"))
	assert.False(t, ValidChannelName("email"))
}

func TestTempStore_WriteAndCleanup(t *testing.T) {
	dir := t.TempDir()
	store := &TempStore{Dir: dir}
	doc := testDoc(300)

	path, cleanup, err := store.Write(doc)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^print-\d+-[0-9a-v]{20}\.pdf$`), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, doc.Data, data)

	cleanup()
	assert.NoFileExists(t, path)
	cleanup()
}

func TestTempStore_UniqueNames(t *testing.T) {
	store := &TempStore{Dir: t.TempDir()}
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		path, cleanup, err := store.Write(testDoc(150))
		require.NoError(t, err)
		assert.False(t, seen[path])
		seen[path] = true
		defer cleanup()
	}
}

func TestTempStore_MissingDir(t *testing.T) {
	store := &TempStore{Dir: filepath.Join(t.TempDir(), "missing")}
	_, cleanup, err := store.Write(testDoc(150))
	assert.Error(t, err)
	cleanup()
}

func TestNativeChannel(t *testing.T) {
	dir := t.TempDir()
	sp := &fakeSpooler{}
	ch := NewNativeChannel(sp, &TempStore{Dir: dir})

	require.NoError(t, ch.Print(context.Background(), &Job{Printer: "Office", Document: testDoc(200)}))
	assert.Equal(t, []string{"native"}, sp.callList())
	assert.False(t, sp.missing)
	assert.Empty(t, dirEntries(t, dir))

	sp.nativeErr = errors.New("exit status 1")
	err := ch.Print(context.Background(), &Job{Document: testDoc(200)})
	assert.True(t, errors.Is(err, printer.ErrLocalPrintFailed))
	assert.Empty(t, dirEntries(t, dir))
}

func TestFallbackChannel(t *testing.T) {
	t.Run("utility succeeds", func(t *testing.T) {
		sp := &fakeSpooler{}
		dir := t.TempDir()
		ch := NewFallbackChannel(sp, &TempStore{Dir: dir}, time.Hour)
		require.NoError(t, ch.Print(context.Background(), &Job{Document: testDoc(200)}))
		assert.Equal(t, []string{"utility"}, sp.callList())
		assert.Empty(t, dirEntries(t, dir))
	})

	t.Run("default handler after utility failure", func(t *testing.T) {
		sp := &fakeSpooler{utilityErr: errors.New("sumatra missing")}
		dir := t.TempDir()
		ch := NewFallbackChannel(sp, &TempStore{Dir: dir}, 50*time.Millisecond)
		require.NoError(t, ch.Print(context.Background(), &Job{Document: testDoc(200)}))
		assert.Equal(t, []string{"utility", "open"}, sp.callList())
		assert.Equal(t, sp.paths[0], sp.paths[1])

		// the viewer still needs the file right after the handoff
		_, err := os.Stat(sp.paths[1])
		require.NoError(t, err)
		require.Eventually(t, func() bool { return len(dirEntries(t, dir)) == 0 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("both fail", func(t *testing.T) {
		sp := &fakeSpooler{utilityErr: errors.New("no utility"), openErr: errors.New("no handler")}
		dir := t.TempDir()
		err := NewFallbackChannel(sp, &TempStore{Dir: dir}, time.Hour).Print(context.Background(), &Job{Document: testDoc(200)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, printer.ErrLocalPrintFailed))
		assert.Contains(t, err.Error(), "no handler")
		assert.Empty(t, dirEntries(t, dir))
	})
}
