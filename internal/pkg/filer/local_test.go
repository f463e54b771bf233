package filer

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airenas/rhemaflow/internal/pkg/test"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initTest(t *testing.T) (*Local, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return NewLocalFs(fs), fs
}

func TestSaveLoad(t *testing.T) {
	l, _ := initTest(t)
	require.Nil(t, l.SaveFile(test.Ctx(t), "1/a.mp3", strings.NewReader("olia"), 4))

	f, err := l.LoadFile(test.Ctx(t), "1/a.mp3")

	require.Nil(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.Nil(t, err)
	assert.Equal(t, "olia", string(b))
}

func TestSave_Overwrites(t *testing.T) {
	l, _ := initTest(t)
	require.Nil(t, l.SaveFile(test.Ctx(t), "1/a.mp3", strings.NewReader("olia olia"), 9))
	require.Nil(t, l.SaveFile(test.Ctx(t), "1/a.mp3", strings.NewReader("olia"), 4))
	f, err := l.LoadFile(test.Ctx(t), "1/a.mp3")
	require.Nil(t, err)
	defer f.Close()
	assert.Equal(t, "olia", test.RStr(t, f))
}

func TestLoad_NotFound(t *testing.T) {
	l, _ := initTest(t)
	_, err := l.LoadFile(test.Ctx(t), "1/a.mp3")
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}

func TestDelete(t *testing.T) {
	l, fs := initTest(t)
	require.Nil(t, l.SaveFile(test.Ctx(t), "1/a.mp3", strings.NewReader("olia"), 4))

	require.Nil(t, l.DeleteFile(test.Ctx(t), "1/a.mp3"))

	ok, err := afero.Exists(fs, "1/a.mp3")
	require.Nil(t, err)
	assert.False(t, ok)
	ok, err = afero.DirExists(fs, "1")
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestDelete_Missing(t *testing.T) {
	l, _ := initTest(t)
	assert.Nil(t, l.DeleteFile(test.Ctx(t), "1/a.mp3"))
}

func TestDelete_KeepsOtherFiles(t *testing.T) {
	l, fs := initTest(t)
	require.Nil(t, l.SaveFile(test.Ctx(t), "1/a.mp3", strings.NewReader("olia"), 4))
	require.Nil(t, l.SaveFile(test.Ctx(t), "1/b.mp3", strings.NewReader("olia"), 4))

	require.Nil(t, l.DeleteFile(test.Ctx(t), "1/a.mp3"))

	ok, err := afero.Exists(fs, "1/b.mp3")
	require.Nil(t, err)
	assert.True(t, ok)
}

func TestNewLocal(t *testing.T) {
	_, err := NewLocal("")
	assert.NotNil(t, err)
	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.Nil(t, err)
	require.Nil(t, l.SaveFile(test.Ctx(t), "1/a.mp3", strings.NewReader("olia"), 4))
	b, err := os.ReadFile(filepath.Join(dir, "1", "a.mp3"))
	require.Nil(t, err)
	assert.Equal(t, "olia", string(b))
}
