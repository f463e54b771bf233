package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "ok", key: "AIza-123", wantErr: false},
		{name: "empty", key: "", wantErr: true},
		{name: "spaces", key: "   ", wantErr: true},
		{name: "placeholder", key: "your_api_key_here", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckKey("GEMINI_API_KEY", tt.key)
			if tt.wantErr {
				require.Error(t, err)
				var ce *utils.ConfigurationError
				assert.True(t, errors.As(err, &ce))
				assert.Contains(t, err.Error(), "GEMINI_API_KEY")
				assert.NotContains(t, err.Error(), "your_api_key_here")
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestUnconfigured(t *testing.T) {
	err := utils.NewConfigurationError("GEMINI_API_KEY not configured")
	p := NewUnconfigured("gemini", err)
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, err, p.Ready())
	res, gErr := p.Generate(context.Background(), &Request{Instruction: "olia"})
	assert.Equal(t, "", res)
	assert.Equal(t, err, gErr)
}

func TestIsTransientCode(t *testing.T) {
	assert.True(t, IsTransientCode(429))
	assert.True(t, IsTransientCode(500))
	assert.True(t, IsTransientCode(503))
	assert.False(t, IsTransientCode(400))
	assert.False(t, IsTransientCode(401))
	assert.False(t, IsTransientCode(404))
}

func TestClassifyErr(t *testing.T) {
	assert.Nil(t, ClassifyErr(nil, 0))
	assert.True(t, utils.IsTransient(ClassifyErr(errors.New("olia"), 503)))
	assert.False(t, utils.IsTransient(ClassifyErr(errors.New("olia"), 400)))
	assert.True(t, utils.IsTransient(ClassifyErr(context.DeadlineExceeded, 0)))
	se := utils.NewServiceError(errors.New("olia"), true)
	assert.Equal(t, se, ClassifyErr(se, 400))
}
