package filer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/spf13/afero"
)

// Local keeps media files on a local disk
type Local struct {
	fs afero.Fs
}

// NewLocal creates local filer rooted at dir
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("no dir")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("can't create dir '%s': %w", dir, err)
	}
	goapp.Log.Info().Str("dir", dir).Msg("local filer")
	return NewLocalFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// NewLocalFs creates filer over the provided fs
func NewLocalFs(fs afero.Fs) *Local {
	return &Local{fs: fs}
}

// SaveFile writes file
func (l *Local) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	if err := l.fs.MkdirAll(filepath.Dir(name), 0700); err != nil {
		return fmt.Errorf("can't create dir: %w", err)
	}
	f, err := l.fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("can't create file: %w", err)
	}
	n, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		_ = l.fs.Remove(name)
		return fmt.Errorf("can't write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("can't close file: %w", err)
	}
	goapp.Log.Debug().Str("file", name).Int64("bytes", n).Msg("saved")
	return nil
}

// LoadFile opens file for reading
func (l *Local) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	f, err := l.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no file '%s': %w", name, utils.ErrNotFound)
		}
		return nil, fmt.Errorf("can't open file: %w", err)
	}
	return f, nil
}

// DeleteFile removes the file and its dir if empty. A missing file is not an error
func (l *Local) DeleteFile(ctx context.Context, name string) error {
	if err := l.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("can't delete '%s': %w", name, err)
	}
	dir := filepath.Dir(name)
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if empty, err := afero.IsEmpty(l.fs, dir); err == nil && empty {
		_ = l.fs.Remove(dir)
	}
	return nil
}
