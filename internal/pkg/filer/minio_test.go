package filer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestNewMinio_Fail(t *testing.T) {
	_, err := NewMinio(context.Background(), MinioOptions{Bucket: "b"})
	assert.NotNil(t, err)
	_, err = NewMinio(context.Background(), MinioOptions{URL: "localhost:9000"})
	assert.NotNil(t, err)
}

func Test_isNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "not found", err: minio.ErrorResponse{StatusCode: http.StatusNotFound, Code: "NoSuchKey"}, want: true},
		{name: "wrapped", err: fmt.Errorf("stat: %w", minio.ErrorResponse{StatusCode: http.StatusNotFound}), want: true},
		{name: "denied", err: minio.ErrorResponse{StatusCode: http.StatusForbidden, Code: "AccessDenied"}, want: false},
		{name: "other", err: errors.New("connection refused"), want: false},
		{name: "nil", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func Test_mapErr_Wraps(t *testing.T) {
	errTest := errors.New("timeout")
	assert.True(t, errors.Is(mapErr("a", errTest), errTest))
}

func Test_mapErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{name: "not found", err: minio.ErrorResponse{StatusCode: http.StatusNotFound}, notFound: true},
		{name: "server", err: minio.ErrorResponse{StatusCode: http.StatusInternalServerError}, notFound: false},
		{name: "other", err: errors.New("timeout"), notFound: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapErr("1/a.mp3", tt.err)
			assert.NotNil(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, utils.ErrNotFound))
			assert.Contains(t, err.Error(), "1/a.mp3")
		})
	}
}
