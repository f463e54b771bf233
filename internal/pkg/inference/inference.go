package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
)

// Media is an inline payload sent together with the instruction
type Media struct {
	Name     string
	MimeType string
	Data     []byte
}

// Request for a single shot generation
type Request struct {
	Instruction string
	Media       *Media
}

// Provider is an external generative inference capability
type Provider interface {
	Name() string
	// Ready returns a configuration error if the provider can not be called
	Ready() error
	Generate(ctx context.Context, req *Request) (string, error)
}

const placeholderKey = "your_api_key_here"

// CheckKey fails for an empty or placeholder credential.
// The error names the setting, never the value
func CheckKey(envName, key string) error {
	k := strings.TrimSpace(key)
	if k == "" || k == placeholderKey {
		return utils.NewConfigurationError(fmt.Sprintf("%s not configured", envName))
	}
	return nil
}

// Unconfigured is a provider that fails every call with the configuration error
type Unconfigured struct {
	name string
	err  error
}

// NewUnconfigured creates the provider
func NewUnconfigured(name string, err error) *Unconfigured {
	return &Unconfigured{name: name, err: err}
}

// Name returns provider name
func (u *Unconfigured) Name() string {
	return u.name
}

// Ready returns the configuration error
func (u *Unconfigured) Ready() error {
	return u.err
}

// Generate returns the configuration error
func (u *Unconfigured) Generate(ctx context.Context, req *Request) (string, error) {
	return "", u.err
}

// ClassifyErr wraps provider error into ServiceError, code is HTTP status or 0 if unknown
func ClassifyErr(err error, code int) error {
	if err == nil {
		return nil
	}
	var se *utils.ServiceError
	if errors.As(err, &se) {
		return err
	}
	if code > 0 {
		return utils.NewServiceError(err, IsTransientCode(code))
	}
	return utils.NewServiceError(err, goapp.IsRetryableErr(err) || errors.Is(err, context.DeadlineExceeded))
}

// IsTransientCode returns true for throttling and server side failures
func IsTransientCode(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}
