package credential

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"Mansoor88-6/process-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "credentials.yaml")
	store := NewStore(path)

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoSession)

	sess := &Session{
		Token: "tok",
		User:  models.UserView{ID: 3, Username: "ana", FirstName: "Ana", Role: models.RoleWorker, Status: models.UserStatusApproved},
	}
	require.NoError(t, store.Save(sess))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestLoadRejectsEmptyToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: \"\"\n"), 0o600))

	_, err := NewStore(path).Load()
	require.ErrorIs(t, err, ErrNoSession)
}
