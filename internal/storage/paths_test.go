package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDestination_BlankUsesDefault(t *testing.T) {
	def := filepath.Join(t.TempDir(), "default")

	got, err := ResolveDestination(def, "   ")
	require.NoError(t, err)
	assert.Equal(t, def, got)
	assert.DirExists(t, def)
}

func TestResolveDestination_RelativeJoinsDefault(t *testing.T) {
	def := t.TempDir()

	got, err := ResolveDestination(def, "mario/nes")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(def, "mario", "nes"), got)
	assert.DirExists(t, got)
}

func TestResolveDestination_Absolute(t *testing.T) {
	def := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	got, err := ResolveDestination(def, abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)
}

func TestResolveDestination_PermissionDeniedFallsBack(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	def := t.TempDir()
	locked := filepath.Join(t.TempDir(), "locked")
	require.NoError(t, os.Mkdir(locked, 0o500))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	got, err := ResolveDestination(def, filepath.Join(locked, "sub"))
	require.NoError(t, err)
	assert.Equal(t, def, got)
}
