package mocks

import (
	"context"
	"io"

	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/intake"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// Filer is media storage mock
type Filer struct{ mock.Mock }

// SaveFile func mock
func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	args := m.Called(ctx, name, r, fileSize)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DeleteFile func mock
func (m *Filer) DeleteFile(ctx context.Context, fileName string) error {
	args := m.Called(ctx, fileName)
	return args.Error(0)
}

// Store is transcript store mock
type Store struct{ mock.Mock }

func (m *Store) Put(ctx context.Context, t *persistence.Transcript) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *Store) Get(ctx context.Context, id string) (*persistence.Transcript, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

func (m *Store) List(ctx context.Context) ([]*persistence.Summary, error) {
	args := m.Called(ctx)
	return to[[]*persistence.Summary](args.Get(0)), args.Error(1)
}

func (m *Store) UpdateQuotes(ctx context.Context, id string, quotes []persistence.Quote, version int64) error {
	args := m.Called(ctx, id, quotes, version)
	return args.Error(0)
}

func (m *Store) Delete(ctx context.Context, id string) (*persistence.Transcript, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

// Provider is inference provider mock
type Provider struct{ mock.Mock }

func (m *Provider) Name() string {
	return "mock"
}

func (m *Provider) Ready() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Provider) Generate(ctx context.Context, req *inference.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Transcriber is orchestrator mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Ready() error {
	args := m.Called()
	return args.Error(0)
}

func (m *Transcriber) Transcribe(ctx context.Context, media *intake.Media, meta *api.Metadata) (*persistence.Transcript, error) {
	args := m.Called(ctx, media, meta)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

// Extractor is quote extraction mock
type Extractor struct{ mock.Mock }

func (m *Extractor) Extract(ctx context.Context, id string) ([]persistence.Quote, error) {
	args := m.Called(ctx, id)
	return to[[]persistence.Quote](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
