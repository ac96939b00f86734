package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFileMatchesNewHash(t *testing.T) {
	content := []byte("Delta-c,Delta-w,C0,P0\n0,0,1,1\n")
	path := filepath.Join(t.TempDir(), "x_valdata.csv")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	got, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, NewHash(content), got)
	assert.Len(t, got.Short(), 12)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
