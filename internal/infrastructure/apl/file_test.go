package apl

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileAPL_Contract(t *testing.T) {
	store := NewFileAPL(filepath.Join(t.TempDir(), "auth.json"), zerolog.Nop())
	testAPLContract(t, store, true)
}

func TestFileAPL_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	ctx := context.Background()

	require.NoError(t, NewFileAPL(path, zerolog.Nop()).Set(ctx, sampleAuthData("https://a.saleor.cloud/graphql/")))

	got, err := NewFileAPL(path, zerolog.Nop()).Get(ctx, "https://a.saleor.cloud/graphql/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "token-for-https://a.saleor.cloud/graphql/", got.Token)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Contains(t, onDisk, "https://a.saleor.cloud/graphql/")
	assert.Equal(t, "QXBwOjE=", onDisk["https://a.saleor.cloud/graphql/"]["appId"])
}

func TestFileAPL_MissingFileIsEmpty(t *testing.T) {
	store := NewFileAPL(filepath.Join(t.TempDir(), "missing.json"), zerolog.Nop())

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.True(t, store.IsReady(context.Background()).Ready)
	assert.True(t, store.IsConfigured(context.Background()).Configured)
}

func TestFileAPL_CorruptFileIsNotReady(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store := NewFileAPL(path, zerolog.Nop())

	result := store.IsReady(context.Background())
	assert.False(t, result.Ready)
	assert.Error(t, result.Error)

	_, err := store.Get(context.Background(), "https://a.saleor.cloud/graphql/")
	assert.Error(t, err)
}

func TestNewFileAPL_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFilePath, NewFileAPL("", zerolog.Nop()).path)
}
