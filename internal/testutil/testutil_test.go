package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnv_Path(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("subdir", "file.txt")
	assert.True(t, filepath.IsAbs(path))
	assert.Contains(t, path, "subdir")
	assert.Contains(t, path, "file.txt")
}

func TestTestEnv_WriteReadFile(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFileString("nested/list.json", `{"to_read":[]}`)

	assert.Equal(t, `{"to_read":[]}`, env.ReadFileString("nested/list.json"))
	env.RequireFileExists("nested/list.json")
}

func TestTestEnv_MkdirAll(t *testing.T) {
	env := NewTestEnv(t)

	env.MkdirAll("data/cache")

	info, err := os.Stat(env.Path("data/cache"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSetTestConfig(t *testing.T) {
	env := NewTestEnv(t)

	cfg := SetTestConfig(t, env)

	assert.Equal(t, env.RootDir(), cfg.DataDir)
	assert.Equal(t, env.Path("cache.db"), cfg.CacheDBFile)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimensions)
	assert.Empty(t, cfg.NYTAPIKey)
	assert.Equal(t, 2, cfg.Workers)
}

func TestSampleShelf_DistinctIdentities(t *testing.T) {
	seen := map[string]bool{}
	for _, b := range SampleShelf() {
		key := b.IdentityKey()
		assert.False(t, seen[key], "duplicate identity %s", key)
		seen[key] = true
	}
	assert.True(t, SampleBook("A", "B", "123").HasISBN())
}
