package transcribe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/intake"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/airenas/rhemaflow/internal/pkg/status"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

const (
	// DefaultSpeaker is set when none provided
	DefaultSpeaker = "Unknown"
	// DateLayout of the human readable record date
	DateLayout = "Jan 2, 2006"
)

// Filer provides stored media access
type Filer interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
	DeleteFile(ctx context.Context, name string) error
}

// Saver persists a new record
type Saver interface {
	Put(ctx context.Context, t *persistence.Transcript) error
}

// Service turns a stored media file into a transcript record
type Service struct {
	filer    Filer
	provider inference.Provider
	store    Saver
	now      func() time.Time
}

// NewService creates the orchestrator
func NewService(filer Filer, provider inference.Provider, store Saver) (*Service, error) {
	if filer == nil {
		return nil, fmt.Errorf("no filer")
	}
	if provider == nil {
		return nil, fmt.Errorf("no provider")
	}
	if store == nil {
		return nil, fmt.Errorf("no store")
	}
	return &Service{filer: filer, provider: provider, store: store, now: time.Now}, nil
}

// Ready returns configuration error if the provider can not be used
func (s *Service) Ready() error {
	return s.provider.Ready()
}

// Transcribe calls the provider with the stored media and saves the new record.
// On failure the stored media is removed
func (s *Service) Transcribe(ctx context.Context, media *intake.Media, meta *api.Metadata) (*persistence.Transcript, error) {
	defer goapp.Estimate("transcribe " + media.ID)()
	res, err := s.transcribe(ctx, media, meta)
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", media.ID).Msg("transcription failed")
		// request context may be gone already
		if dErr := s.filer.DeleteFile(context.Background(), media.StoredName); dErr != nil {
			goapp.Log.Error().Err(dErr).Str("file", media.StoredName).Msg("can't delete media")
		}
		return nil, err
	}
	return res, nil
}

func (s *Service) transcribe(ctx context.Context, media *intake.Media, meta *api.Metadata) (*persistence.Transcript, error) {
	kind, mimeType := media.Kind, media.MimeType
	if kind == 0 || mimeType == "" {
		var err error
		if kind, mimeType, err = intake.Classify(media.FileName); err != nil {
			return nil, err
		}
	}
	data, err := s.load(ctx, media.StoredName)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("ID", media.ID).Str("kind", kind.String()).Str("provider", s.provider.Name()).
		Int("bytes", len(data)).Msg("invoke provider")
	text, err := s.provider.Generate(ctx, &inference.Request{Instruction: Instruction(kind),
		Media: &inference.Media{Name: media.FileName, MimeType: mimeType, Data: data}})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, utils.NewServiceError(fmt.Errorf("provider returned empty transcript"), false)
	}
	res := s.newRecord(media, meta, text)
	if err := s.store.Put(ctx, res); err != nil {
		return nil, fmt.Errorf("can't save transcript: %w", err)
	}
	goapp.Log.Info().Str("ID", res.ID).Int("len", len(text)).Msg("transcript saved")
	return res, nil
}

func (s *Service) load(ctx context.Context, name string) ([]byte, error) {
	f, err := s.filer.LoadFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("can't load '%s': %w", name, err)
	}
	defer f.Close()
	res, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("can't read '%s': %w", name, err)
	}
	return res, nil
}

func (s *Service) newRecord(media *intake.Media, meta *api.Metadata, text string) *persistence.Transcript {
	if meta == nil {
		meta = &api.Metadata{}
	}
	now := s.now()
	return &persistence.Transcript{
		Summary: persistence.Summary{
			ID:      media.ID,
			Title:   withDefault(meta.Title, utils.TrimExt(media.FileName)),
			Speaker: withDefault(meta.Speaker, DefaultSpeaker),
			Tags:    SplitTags(meta.Tags),
			Date:    now.Format(DateLayout),
			Status:  status.Completed.String(),
			Quotes:  []persistence.Quote{},
			Created: now,
		},
		Text:      text,
		MediaPath: media.StoredName,
	}
}

// SplitTags splits on commas and trims, empty items are dropped
func SplitTags(s string) []string {
	res := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			res = append(res, t)
		}
	}
	return res
}

func withDefault(s, d string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return d
}
