package quotes

import (
	"context"
	"fmt"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

const maxLoggedRaw = 2000

// Store provides record access for the extraction
type Store interface {
	Get(ctx context.Context, id string) (*persistence.Transcript, error)
	UpdateQuotes(ctx context.Context, id string, quotes []persistence.Quote, version int64) error
}

// Service extracts highlight quotes from stored transcripts
type Service struct {
	store    Store
	provider inference.Provider

	lock     sync.Mutex
	inFlight map[string]bool
}

// NewService creates the extraction service
func NewService(store Store, provider inference.Provider) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("no store")
	}
	if provider == nil {
		return nil, fmt.Errorf("no provider")
	}
	return &Service{store: store, provider: provider, inFlight: map[string]bool{}}, nil
}

// Extract re-derives quotes of the transcript and replaces the stored ones.
// Only one extraction per id runs at a time
func (s *Service) Extract(ctx context.Context, id string) ([]persistence.Quote, error) {
	if !s.enter(id) {
		return nil, fmt.Errorf("extraction for '%s' is in progress: %w", id, utils.ErrConflict)
	}
	defer s.leave(id)
	defer goapp.Estimate("extract " + id)()

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.provider.Ready(); err != nil {
		return nil, err
	}
	raw, err := s.provider.Generate(ctx, &inference.Request{Instruction: Instruction(t.Text)})
	if err != nil {
		return nil, err
	}
	res, err := Parse(raw)
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Str("raw", goapp.Sanitize(truncate(raw, maxLoggedRaw))).
			Msg("can't parse quotes")
		return nil, err
	}
	if err := s.store.UpdateQuotes(ctx, id, res, t.Version); err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("ID", id).Int("quotes", len(res)).Msg("quotes saved")
	return res, nil
}

func (s *Service) enter(id string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Service) leave(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.inFlight, id)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
