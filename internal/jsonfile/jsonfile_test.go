package jsonfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestEncodeUsesFourSpaces(t *testing.T) {
	data, err := Encode(doc{Name: "7-8 PM <b>", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"name\": \"7-8 PM <b>\",\n    \"count\": 2\n}", string(data))
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	require.NoError(t, Write(path, doc{Name: "a", Count: 1}))

	var got doc
	require.NoError(t, Read(path, &got))
	assert.Equal(t, doc{Name: "a", Count: 1}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestReadMissing(t *testing.T) {
	var got doc
	err := Read(filepath.Join(t.TempDir(), "nope.json"), &got)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestEnsure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	created, err := Ensure(path, doc{Name: "default"})
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, Write(path, doc{Name: "edited"}))
	created, err = Ensure(path, doc{Name: "default"})
	require.NoError(t, err)
	assert.False(t, created)

	var got doc
	require.NoError(t, Read(path, &got))
	assert.Equal(t, "edited", got.Name)
}
