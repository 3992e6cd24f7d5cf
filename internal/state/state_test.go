package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *State {
	s := New()
	s.Serial = 3
	s.Put("net", Record{Kind: "network", ID: "42", Attrs: map[string]string{"cidr": "10.0.0.0/16"}})
	s.Put("subnet", Record{Kind: "subnet", ID: "42/10.0.1.0/24", Attrs: map[string]string{"cidr": "10.0.1.0/24"}})
	return s
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()
	s := sampleState()

	data, err := s.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, s.Serial, decoded.Serial)
	assert.Equal(t, s.Records, decoded.Records)
}

func TestEncode_Deterministic(t *testing.T) {
	t.Parallel()
	a, err := sampleState().Encode()
	require.NoError(t, err)
	b, err := sampleState().Encode()
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDecode_Invalid(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte("not json"))
	require.Error(t, err)
}

func TestAttr(t *testing.T) {
	t.Parallel()
	s := sampleState()

	v, ok := s.Attr("net", "cidr")
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.0/16", v)

	_, ok = s.Attr("net", "missing")
	assert.False(t, ok)
	_, ok = s.Attr("missing", "cidr")
	assert.False(t, ok)
}

func TestFileStore_LoadMissingReturnsEmpty(t *testing.T) {
	t.Parallel()
	store := NewFileStore(t.TempDir())

	s, err := store.Load(context.Background(), "unknown")

	require.NoError(t, err)
	assert.Empty(t, s.Records)
	assert.Zero(t, s.Serial)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.Save(context.Background(), "demo", sampleState()))

	loaded, err := store.Load(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, sampleState().Records, loaded.Records)
	assert.Equal(t, 3, loaded.Serial)
}

func TestFileStore_SaveReplacesAtomically(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.Save(context.Background(), "demo", sampleState()))

	updated := sampleState()
	updated.Serial = 4
	updated.Delete("subnet")
	require.NoError(t, store.Save(context.Background(), "demo", updated))

	loaded, err := store.Load(context.Background(), "demo")
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Serial)
	assert.Len(t, loaded.Records, 1)

	// No temp files left behind.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "demo/state.json", objectKey("demo"))
}
