package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/client"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

var (
	// ErrBusy is returned when an upload is already in flight
	ErrBusy = errors.New("upload in progress")
	// ErrInvalidTransition is returned for an action not allowed in the current phase
	ErrInvalidTransition = errors.New("invalid transition")
)

const (
	msgCancelled = "Upload cancelled"
	msgNetwork   = "Network error"
	msgFailed    = "Upload failed"
	msgFile      = "Can't read file"
)

// Uploader sends media to the API
type Uploader interface {
	Upload(ctx context.Context, data *client.UploadData, progress client.ProgressFunc) (*api.TranscribeResult, error)
}

// Source is a chosen media file
type Source struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// State is a snapshot of the machine
type State struct {
	Phase    Phase
	FileName string
	Meta     api.Metadata
	Progress int
	ID       string
	Message  string
}

// Machine tracks one upload from selection to done or error
type Machine struct {
	uploader Uploader

	lock      sync.Mutex
	state     State
	source    *Source
	cancelF   context.CancelFunc
	observers []func(State)
}

// New creates machine in Idle phase
func New(uploader Uploader) (*Machine, error) {
	if uploader == nil {
		return nil, fmt.Errorf("no uploader")
	}
	return &Machine{uploader: uploader, state: State{Phase: Idle}}, nil
}

// OnChange registers an observer, it is called with a snapshot after every change
func (m *Machine) OnChange(f func(State)) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.observers = append(m.observers, f)
}

// State returns current snapshot
func (m *Machine) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

// Select chooses a file, allowed in Idle and Selected
func (m *Machine) Select(src *Source) error {
	if src == nil || src.Name == "" || src.Open == nil {
		return fmt.Errorf("no file")
	}
	return m.change(func(s *State) error {
		if s.Phase != Idle && s.Phase != Selected {
			return m.wrongPhase(s.Phase, "select")
		}
		m.source = src
		*s = State{Phase: Selected, FileName: src.Name, Meta: api.Metadata{Title: utils.TrimExt(src.Name)}}
		return nil
	})
}

// SetMetadata edits metadata of the selected file
func (m *Machine) SetMetadata(meta api.Metadata) error {
	return m.change(func(s *State) error {
		if s.Phase != Selected {
			return m.wrongPhase(s.Phase, "edit")
		}
		s.Meta = meta
		return nil
	})
}

// Start uploads the selected file and waits for the transcript.
// Returns the new transcript ID. Failures move the machine to Error, they are never retried
func (m *Machine) Start(ctx context.Context) (string, error) {
	ctx, cancelF := context.WithCancel(ctx)
	defer cancelF()
	var src *Source
	var meta api.Metadata
	err := m.change(func(s *State) error {
		if s.Phase != Selected {
			return m.wrongPhase(s.Phase, "start")
		}
		src, meta = m.source, s.Meta
		m.cancelF = cancelF
		s.Phase, s.Progress = Uploading, 0
		return nil
	})
	if err != nil {
		return "", err
	}
	goapp.Log.Info().Str("file", src.Name).Int64("size", src.Size).Msg("upload start")

	res, err := m.upload(ctx, src, meta)
	if err != nil {
		msg := toMessage(err)
		goapp.Log.Error().Err(err).Str("file", src.Name).Msg("upload failed")
		_ = m.change(func(s *State) error {
			m.cancelF = nil
			s.Phase, s.Message = Error, msg
			return nil
		})
		return "", err
	}
	m.toProcessing()
	_ = m.change(func(s *State) error {
		m.cancelF = nil
		s.Phase, s.ID, s.Progress = Done, res.ID, 100
		return nil
	})
	goapp.Log.Info().Str("ID", res.ID).Msg("upload done")
	return res.ID, nil
}

func (m *Machine) upload(ctx context.Context, src *Source, meta api.Metadata) (*api.TranscribeResult, error) {
	r, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("can't open '%s': %w", src.Name, err)
	}
	defer r.Close()
	return m.uploader.Upload(ctx, &client.UploadData{FileName: src.Name, Reader: r, Size: src.Size, Meta: meta},
		m.progress)
}

func (m *Machine) progress(sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(sent * 100 / total)
	if pct > 100 {
		pct = 100
	}
	if pct >= 100 {
		m.toProcessing()
		return
	}
	_ = m.change(func(s *State) error {
		if s.Phase != Uploading || pct <= s.Progress {
			return errNoChange
		}
		s.Progress = pct
		return nil
	})
}

func (m *Machine) toProcessing() {
	_ = m.change(func(s *State) error {
		if s.Phase != Uploading {
			return errNoChange
		}
		s.Phase, s.Progress = Processing, 100
		return nil
	})
}

// Cancel aborts the in-flight upload
func (m *Machine) Cancel() error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.cancelF == nil {
		return m.wrongPhase(m.state.Phase, "cancel")
	}
	m.cancelF()
	return nil
}

// Reset clears everything and moves to Idle, allowed from Selected, Done and Error
func (m *Machine) Reset() error {
	return m.change(func(s *State) error {
		switch s.Phase {
		case Idle:
			return errNoChange
		case Selected, Done, Error:
			m.source = nil
			*s = State{Phase: Idle}
			return nil
		}
		return m.wrongPhase(s.Phase, "reset")
	})
}

var errNoChange = errors.New("no change")

// change applies f under the lock and notifies observers if state changed
func (m *Machine) change(f func(s *State) error) error {
	m.lock.Lock()
	err := f(&m.state)
	snapshot, obs := m.state, append([]func(State){}, m.observers...)
	m.lock.Unlock()
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, o := range obs {
		o(snapshot)
	}
	return nil
}

func (m *Machine) wrongPhase(p Phase, action string) error {
	if p == Uploading || p == Processing {
		return fmt.Errorf("can't %s: %w", action, ErrBusy)
	}
	return fmt.Errorf("can't %s in '%s': %w", action, p.String(), ErrInvalidTransition)
}

func toMessage(err error) string {
	if errors.Is(err, context.Canceled) {
		return msgCancelled
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return msgFile
	}
	var he *client.HTTPError
	if errors.As(err, &he) {
		if he.Message != "" {
			return he.Message
		}
		return msgFailed
	}
	return msgNetwork
}
