package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

// Store keeps transcripts in process memory.
// Records are lost on restart
type Store struct {
	lock sync.RWMutex
	data map[string]*persistence.Transcript
}

// NewStore creates empty store
func NewStore() *Store {
	goapp.Log.Warn().Msg("transcripts are kept in memory, they will be lost on restart")
	return &Store{data: map[string]*persistence.Transcript{}}
}

// Put adds a new record, version is reset to 1
func (s *Store) Put(ctx context.Context, t *persistence.Transcript) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("no ID")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.data[t.ID]; ok {
		return fmt.Errorf("can't put '%s': %w", t.ID, utils.ErrConflict)
	}
	c := t.Copy()
	c.Version = 1
	s.data[t.ID] = c
	return nil
}

// Get returns a copy of the record
func (s *Store) Get(ctx context.Context, id string) (*persistence.Transcript, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	res, ok := s.data[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return res.Copy(), nil
}

// List returns summaries, newest first
func (s *Store) List(ctx context.Context) ([]*persistence.Summary, error) {
	s.lock.RLock()
	res := make([]*persistence.Summary, 0, len(s.data))
	for _, v := range s.data {
		res = append(res, v.Summary.Copy())
	}
	s.lock.RUnlock()
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Created.Equal(res[j].Created) {
			return res[i].ID < res[j].ID
		}
		return res[i].Created.After(res[j].Created)
	})
	return res, nil
}

// UpdateQuotes replaces quotes if the record is still at version
func (s *Store) UpdateQuotes(ctx context.Context, id string, quotes []persistence.Quote, version int64) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	res, ok := s.data[id]
	if !ok {
		return utils.ErrNotFound
	}
	if res.Version != version {
		return fmt.Errorf("can't update '%s', version %d != %d: %w", id, res.Version, version, utils.ErrConflict)
	}
	res.Quotes = persistence.CopyQuotes(quotes)
	res.Version++
	return nil
}

// Delete removes the record and returns it
func (s *Store) Delete(ctx context.Context, id string) (*persistence.Transcript, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	res, ok := s.data[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	delete(s.data, id)
	return res, nil
}
