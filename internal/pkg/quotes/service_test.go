package quotes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/airenas/rhemaflow/internal/pkg/test/mocks"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	storeMock    *mocks.Store
	providerMock *mocks.Provider
)

const testQuotes = `[{"text":"Grace is enough.","timestamp":"01:10","themes":["grace"],"impact":5}]`

func initTest(t *testing.T) *Service {
	t.Helper()
	storeMock = &mocks.Store{}
	providerMock = &mocks.Provider{}
	res, err := NewService(storeMock, providerMock)
	require.Nil(t, err)
	return res
}

func newTranscript() *persistence.Transcript {
	return &persistence.Transcript{Summary: persistence.Summary{ID: "1", Quotes: []persistence.Quote{}},
		Text: "[00:00] Grace is enough.", Version: 3}
}

func TestNewService_Fail(t *testing.T) {
	_, err := NewService(nil, &mocks.Provider{})
	assert.NotNil(t, err)
	_, err = NewService(&mocks.Store{}, nil)
	assert.NotNil(t, err)
}

func TestExtract(t *testing.T) {
	s := initTest(t)
	storeMock.On("Get", mock.Anything, "1").Return(newTranscript(), nil)
	storeMock.On("UpdateQuotes", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	providerMock.On("Ready").Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).Return("```json\n"+testQuotes+"\n```", nil)

	res, err := s.Extract(context.Background(), "1")
	require.Nil(t, err)
	require.Equal(t, 1, len(res))
	assert.Equal(t, "Grace is enough.", res[0].Text)

	req := providerMock.Calls[1].Arguments.Get(1).(*inference.Request)
	assert.Nil(t, req.Media)
	assert.Contains(t, req.Instruction, "[00:00] Grace is enough.")
	storeMock.AssertCalled(t, "UpdateQuotes", mock.Anything, "1", res, int64(3))
}

func TestExtract_NotFound(t *testing.T) {
	s := initTest(t)
	storeMock.On("Get", mock.Anything, "1").Return(nil, utils.ErrNotFound)

	_, err := s.Extract(context.Background(), "1")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	providerMock.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestExtract_NotConfigured(t *testing.T) {
	s := initTest(t)
	storeMock.On("Get", mock.Anything, "1").Return(newTranscript(), nil)
	providerMock.On("Ready").Return(utils.NewConfigurationError("GEMINI_API_KEY not configured"))

	_, err := s.Extract(context.Background(), "1")
	var ce *utils.ConfigurationError
	assert.True(t, errors.As(err, &ce))
	providerMock.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestExtract_ProviderFail(t *testing.T) {
	s := initTest(t)
	storeMock.On("Get", mock.Anything, "1").Return(newTranscript(), nil)
	providerMock.On("Ready").Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).Return("", utils.NewServiceError(errors.New("olia"), false))

	_, err := s.Extract(context.Background(), "1")
	assert.Error(t, err)
	storeMock.AssertNotCalled(t, "UpdateQuotes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExtract_ParseFail(t *testing.T) {
	s := initTest(t)
	storeMock.On("Get", mock.Anything, "1").Return(newTranscript(), nil)
	providerMock.On("Ready").Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).Return("Sorry, I can't do that", nil)

	_, err := s.Extract(context.Background(), "1")
	var pe *utils.ParseError
	assert.True(t, errors.As(err, &pe))
	storeMock.AssertNotCalled(t, "UpdateQuotes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExtract_Conflict(t *testing.T) {
	s := initTest(t)
	storeMock.On("Get", mock.Anything, "1").Return(newTranscript(), nil)
	storeMock.On("UpdateQuotes", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(utils.ErrConflict)
	providerMock.On("Ready").Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).Return(testQuotes, nil)

	_, err := s.Extract(context.Background(), "1")
	assert.ErrorIs(t, err, utils.ErrConflict)
}

func TestExtract_InFlight(t *testing.T) {
	s := initTest(t)
	started, release := make(chan bool), make(chan bool)
	once := &sync.Once{}
	storeMock.On("Get", mock.Anything, "1").Return(&persistence.Transcript{Summary: persistence.Summary{ID: "1"},
		Text: "first"}, nil)
	storeMock.On("Get", mock.Anything, "2").Return(newTranscript(), nil)
	storeMock.On("UpdateQuotes", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	providerMock.On("Ready").Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(1).(*inference.Request)
		if strings.Contains(req.Instruction, "first") {
			once.Do(func() {
				started <- true
				<-release
			})
		}
	}).Return(testQuotes, nil)

	wg := &sync.WaitGroup{}
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = s.Extract(context.Background(), "1")
	}()
	<-started
	_, err := s.Extract(context.Background(), "1")
	assert.ErrorIs(t, err, utils.ErrConflict)
	_, err = s.Extract(context.Background(), "2")
	assert.Nil(t, err)
	close(release)
	wg.Wait()
	assert.Nil(t, firstErr)

	_, err = s.Extract(context.Background(), "1")
	assert.Nil(t, err)
}

func TestInstruction(t *testing.T) {
	res := Instruction("olia")
	assert.Contains(t, res, "\"\"\"\nolia\n\"\"\"")
	assert.Contains(t, res, "5-15")
	assert.Contains(t, res, "Return ONLY valid JSON")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "ąč...", truncate("ąčę", 2))
}
