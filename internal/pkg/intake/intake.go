package intake

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/google/uuid"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

// FileSaver provides save file functionality
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
}

// Media is a validated upload
type Media struct {
	ID         string
	FileName   string
	StoredName string
	Kind       Kind
	MimeType   string
	Size       int64

	header *multipart.FileHeader
}

// Validate checks the form has exactly one supported media file.
// Nothing is written to the durable storage here
func Validate(form *multipart.Form) (*Media, error) {
	if form == nil {
		return nil, utils.NewValidationError("No file provided")
	}
	for k := range form.File {
		if k != api.PrmFile {
			return nil, utils.NewValidationError("Unexpected file field '%s', expected '%s'", k, api.PrmFile)
		}
	}
	fhs := form.File[api.PrmFile]
	if len(fhs) == 0 {
		return nil, utils.NewValidationError("No file provided")
	}
	if len(fhs) > 1 {
		return nil, utils.NewValidationError("Only one file is allowed, got %d", len(fhs))
	}
	fh := fhs[0]
	kind, mimeType, err := Classify(fh.Filename)
	if err != nil {
		return nil, err
	}
	res := &Media{ID: uuid.New().String(), FileName: fh.Filename, Kind: kind, MimeType: mimeType,
		Size: fh.Size, header: fh}
	res.StoredName, err = utils.MakeValidateFileName(res.ID, fh.Filename)
	if err != nil {
		return nil, utils.NewValidationError("Wrong file name '%s'", fh.Filename)
	}
	return res, nil
}

// Save writes the validated file to the durable storage
func Save(ctx context.Context, saver FileSaver, m *Media) error {
	if m.header == nil {
		return fmt.Errorf("no file header")
	}
	f, err := m.header.Open()
	if err != nil {
		return fmt.Errorf("can't open '%s': %w", m.FileName, err)
	}
	defer f.Close()
	goapp.Log.Info().Str("ID", m.ID).Str("file", m.StoredName).Int64("size", m.Size).Msg("saving media")
	if err := saver.SaveFile(ctx, m.StoredName, f, m.Size); err != nil {
		return fmt.Errorf("can't save '%s': %w", m.StoredName, err)
	}
	return nil
}

// TakeMetadata reads optional metadata fields
func TakeMetadata(form *multipart.Form) *api.Metadata {
	if form == nil {
		return &api.Metadata{}
	}
	return &api.Metadata{Title: takeFirst(form.Value[api.PrmTitle], ""),
		Speaker: takeFirst(form.Value[api.PrmSpeaker], ""),
		Tags:    takeFirst(form.Value[api.PrmTags], "")}
}

func takeFirst[K interface{}](a []K, d K) K {
	if len(a) > 0 {
		return a[0]
	}
	return d
}
