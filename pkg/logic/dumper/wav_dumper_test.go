package dumper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ringwav/internal/protocol/wav"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile(t *testing.T) *wav.File {
	f, err := wav.Build(1, 8000, 16, []byte{0x00, 0x40, 0x00, 0xC0})
	require.NoError(t, err)
	return f
}

func TestSanitizePrefix(t *testing.T) {
	assert.Equal(t, "recording", SanitizePrefix(""))
	assert.Equal(t, "recording", SanitizePrefix("///"))
	assert.Equal(t, "my_take", SanitizePrefix("my take"))
	assert.Equal(t, "etc_passwd", SanitizePrefix("../etc/passwd"))
	assert.Equal(t, "mic-1", SanitizePrefix("mic-1"))
}

func TestWAVDumper_FileName(t *testing.T) {
	d, err := NewWAVDumper(t.TempDir(), "take")
	require.NoError(t, err)

	at := time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)
	assert.Equal(t, "take_20240309_070502.wav", d.FileName(at))
}

func TestWAVDumper_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "recordings")
	d, err := NewWAVDumper(dir, "take")
	require.NoError(t, err)

	at := time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)
	f := testFile(t)

	path, err := d.Save(f, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "take_20240309_070502.wav"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, f.Bytes(), raw)

	loaded, err := d.Load("take_20240309_070502.wav")
	require.NoError(t, err)
	assert.Equal(t, f.Data(), loaded.Data())
	assert.Equal(t, f.Format(), loaded.Format())

	data, err := d.ReadRaw("take_20240309_070502.wav")
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestWAVDumper_SaveCollision(t *testing.T) {
	d, err := NewWAVDumper(t.TempDir(), "take")
	require.NoError(t, err)
	at := time.Date(2024, 3, 9, 7, 5, 2, 0, time.Local)

	first, err := d.Save(testFile(t), at)
	require.NoError(t, err)
	second, err := d.Save(testFile(t), at)
	require.NoError(t, err)
	third, err := d.Save(testFile(t), at)
	require.NoError(t, err)

	assert.Equal(t, "take_20240309_070502.wav", filepath.Base(first))
	assert.Equal(t, "take_20240309_070502_1.wav", filepath.Base(second))
	assert.Equal(t, "take_20240309_070502_2.wav", filepath.Base(third))
}

func TestWAVDumper_List(t *testing.T) {
	dir := t.TempDir()
	d, err := NewWAVDumper(dir, "take")
	require.NoError(t, err)

	entries, err := d.List()
	require.NoError(t, err)
	assert.Empty(t, entries)

	older, err := d.Save(testFile(t), time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	_, err = d.Save(testFile(t), time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(older, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.wav"), 0755))

	entries, err = d.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "take_20240102_000000.wav", entries[0].Name)
	assert.Equal(t, "take_20240101_000000.wav", entries[1].Name)
	assert.Equal(t, int64(wav.CanonicalHeaderSize+4), entries[0].Size)
}

func TestWAVDumper_InvalidNames(t *testing.T) {
	d, err := NewWAVDumper(t.TempDir(), "take")
	require.NoError(t, err)

	for _, name := range []string{"", "../secret.wav", "a/b.wav", `a\b.wav`, "notes.txt", ".wav", ".hidden.wav"} {
		_, err := d.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}

	_, err = d.Load("missing.wav")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.ReadRaw("missing.wav")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWAVDumper_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	d, err := NewWAVDumper(dir, "take")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("RIFF"), 0644))

	_, err = d.Load("broken.wav")
	assert.ErrorIs(t, err, wav.ErrTruncatedInput)
}

func TestNewWAVDumper_EmptyDir(t *testing.T) {
	_, err := NewWAVDumper("", "take")
	assert.Error(t, err)
}
