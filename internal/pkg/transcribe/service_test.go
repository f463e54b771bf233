package transcribe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/intake"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/airenas/rhemaflow/internal/pkg/test/mocks"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	filerMock    *mocks.Filer
	providerMock *mocks.Provider
	storeMock    *mocks.Store
	tNow         = time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
)

type readSeekCloser struct {
	*bytes.Reader
}

func (r readSeekCloser) Close() error { return nil }

func initTest(t *testing.T) *Service {
	t.Helper()
	filerMock = &mocks.Filer{}
	providerMock = &mocks.Provider{}
	storeMock = &mocks.Store{}
	res, err := NewService(filerMock, providerMock, storeMock)
	require.Nil(t, err)
	res.now = func() time.Time { return tNow }
	return res
}

func newMedia(name string, kind intake.Kind, mimeType string) *intake.Media {
	return &intake.Media{ID: "id1", FileName: name, StoredName: "id1/" + name, Kind: kind, MimeType: mimeType, Size: 4}
}

func mockLoad() {
	filerMock.On("LoadFile", mock.Anything, mock.Anything).Return(readSeekCloser{bytes.NewReader([]byte("data"))}, nil)
}

func TestNewService(t *testing.T) {
	_, err := NewService(&mocks.Filer{}, &mocks.Provider{}, &mocks.Store{})
	assert.Nil(t, err)
}

func TestNewService_Fail(t *testing.T) {
	_, err := NewService(nil, &mocks.Provider{}, &mocks.Store{})
	assert.NotNil(t, err)
	_, err = NewService(&mocks.Filer{}, nil, &mocks.Store{})
	assert.NotNil(t, err)
	_, err = NewService(&mocks.Filer{}, &mocks.Provider{}, nil)
	assert.NotNil(t, err)
}

func TestTranscribe(t *testing.T) {
	s := initTest(t)
	mockLoad()
	providerMock.On("Generate", mock.Anything, mock.Anything).Return("[00:00] Speaker 1: Grace.", nil)
	storeMock.On("Put", mock.Anything, mock.Anything).Return(nil)

	res, err := s.Transcribe(context.Background(), newMedia("sermon.mp3", intake.Audio, "audio/mpeg"),
		&api.Metadata{Tags: " faith , hope"})
	require.Nil(t, err)
	assert.Equal(t, "id1", res.ID)
	assert.Equal(t, "sermon", res.Title)
	assert.Equal(t, "Unknown", res.Speaker)
	assert.Equal(t, []string{"faith", "hope"}, res.Tags)
	assert.Equal(t, "completed", res.Status)
	assert.Equal(t, "Mar 7, 2024", res.Date)
	assert.Equal(t, tNow, res.Created)
	assert.Equal(t, []persistence.Quote{}, res.Quotes)
	assert.Equal(t, "[00:00] Speaker 1: Grace.", res.Text)
	assert.Equal(t, "id1/sermon.mp3", res.MediaPath)

	filerMock.AssertCalled(t, "LoadFile", mock.Anything, "id1/sermon.mp3")
	filerMock.AssertNotCalled(t, "DeleteFile", mock.Anything, mock.Anything)
	req := providerMock.Calls[0].Arguments.Get(1).(*inference.Request)
	require.NotNil(t, req.Media)
	assert.Equal(t, "audio/mpeg", req.Media.MimeType)
	assert.Equal(t, "data", string(req.Media.Data))
	assert.Contains(t, req.Instruction, "audio file")
	put := storeMock.Calls[0].Arguments.Get(1).(*persistence.Transcript)
	assert.Equal(t, res, put)
}

func TestTranscribe_Metadata(t *testing.T) {
	s := initTest(t)
	mockLoad()
	providerMock.On("Generate", mock.Anything, mock.Anything).Return("olia", nil)
	storeMock.On("Put", mock.Anything, mock.Anything).Return(nil)

	res, err := s.Transcribe(context.Background(), newMedia("a.mov", intake.Video, "video/quicktime"),
		&api.Metadata{Title: "Sunday", Speaker: "Pastor"})
	require.Nil(t, err)
	assert.Equal(t, "Sunday", res.Title)
	assert.Equal(t, "Pastor", res.Speaker)
	assert.Equal(t, []string{}, res.Tags)
	req := providerMock.Calls[0].Arguments.Get(1).(*inference.Request)
	assert.Contains(t, req.Instruction, "[brackets]")
}

func TestTranscribe_ProviderFail(t *testing.T) {
	s := initTest(t)
	mockLoad()
	filerMock.On("DeleteFile", mock.Anything, mock.Anything).Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).
		Return("", utils.NewServiceError(errors.New("quota exceeded"), true))

	_, err := s.Transcribe(context.Background(), newMedia("a.mp3", intake.Audio, "audio/mpeg"), &api.Metadata{})
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", err.Error())
	filerMock.AssertCalled(t, "DeleteFile", mock.Anything, "id1/a.mp3")
	storeMock.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestTranscribe_EmptyOutput(t *testing.T) {
	s := initTest(t)
	mockLoad()
	filerMock.On("DeleteFile", mock.Anything, mock.Anything).Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).Return(" \n", nil)

	_, err := s.Transcribe(context.Background(), newMedia("a.mp3", intake.Audio, "audio/mpeg"), nil)
	require.Error(t, err)
	var se *utils.ServiceError
	assert.True(t, errors.As(err, &se))
	storeMock.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestTranscribe_LoadFail(t *testing.T) {
	s := initTest(t)
	filerMock.On("LoadFile", mock.Anything, mock.Anything).Return(nil, errors.New("olia"))
	filerMock.On("DeleteFile", mock.Anything, mock.Anything).Return(errors.New("olia"))

	_, err := s.Transcribe(context.Background(), newMedia("a.mp3", intake.Audio, "audio/mpeg"), nil)
	require.Error(t, err)
	providerMock.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestTranscribe_PutFail(t *testing.T) {
	s := initTest(t)
	mockLoad()
	filerMock.On("DeleteFile", mock.Anything, mock.Anything).Return(nil)
	providerMock.On("Generate", mock.Anything, mock.Anything).Return("olia", nil)
	storeMock.On("Put", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := s.Transcribe(context.Background(), newMedia("a.mp3", intake.Audio, "audio/mpeg"), nil)
	require.Error(t, err)
	filerMock.AssertCalled(t, "DeleteFile", mock.Anything, "id1/a.mp3")
}

func TestTranscribe_Classifies(t *testing.T) {
	s := initTest(t)
	mockLoad()
	providerMock.On("Generate", mock.Anything, mock.Anything).Return("olia", nil)
	storeMock.On("Put", mock.Anything, mock.Anything).Return(nil)

	_, err := s.Transcribe(context.Background(), newMedia("a.webm", 0, ""), nil)
	require.Nil(t, err)
	req := providerMock.Calls[0].Arguments.Get(1).(*inference.Request)
	assert.Equal(t, "video/webm", req.Media.MimeType)
	assert.Contains(t, req.Instruction, "video file")
}

func TestReady(t *testing.T) {
	s := initTest(t)
	providerMock.On("Ready").Return(utils.NewConfigurationError("GEMINI_API_KEY not configured"))
	assert.Error(t, s.Ready())
}

func TestInstruction(t *testing.T) {
	a := Instruction(intake.Audio)
	assert.Contains(t, a, "Transcribe this audio file")
	assert.Contains(t, a, "[MM:SS]")
	assert.Contains(t, a, "Do NOT summarize")
	assert.False(t, strings.Contains(a, "[brackets]"))
	v := Instruction(intake.Video)
	assert.Contains(t, v, "Transcribe this video file")
	assert.Contains(t, v, "[brackets]")
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: []string{}},
		{in: "a", want: []string{"a"}},
		{in: " a , b,c ", want: []string{"a", "b", "c"}},
		{in: "a,,b, ", want: []string{"a", "b"}},
		{in: "a,a", want: []string{"a", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitTags(tt.in))
		})
	}
}
