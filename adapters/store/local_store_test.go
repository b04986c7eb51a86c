package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"researchdesk/ports"
)

func TestLocalStorePersist(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	result, err := s.Persist(context.Background(), "session-1", []byte("<html></html>"), "report.html")
	require.NoError(t, err)
	assert.Equal(t, ports.PersistUploaded, result.Status)
	assert.Equal(t, filepath.Join(dir, "session-1", "report.html"), result.Path)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestLocalStoreRequiresDirectory(t *testing.T) {
	_, err := NewLocalStore("")
	assert.Error(t, err)
}

func TestDisabledStoreSkips(t *testing.T) {
	result, err := NewDisabledStore().Persist(context.Background(), "s", []byte("x"), "report.html")
	require.NoError(t, err)
	assert.Equal(t, ports.PersistSkipped, result.Status)
	assert.Empty(t, result.Path)
}
