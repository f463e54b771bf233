package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"google.golang.org/genai"
)

// DefaultModel used when none is configured
const DefaultModel = "gemini-2.0-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client calls Gemini generate content API
type Client struct {
	models generator
	model  string
}

// NewClient creates Gemini client, key must be checked before
func NewClient(ctx context.Context, key, model string) (*Client, error) {
	if err := inference.CheckKey("GEMINI_API_KEY", key); err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init gemini client: %w", err)
	}
	goapp.Log.Info().Str("model", model).Msg("gemini")
	return &Client{models: c.Models, model: model}, nil
}

// Name returns provider name
func (c *Client) Name() string {
	return "gemini"
}

// Ready is always ok for a constructed client
func (c *Client) Ready() error {
	return nil
}

// Generate sends instruction with optional inline media
func (c *Client) Generate(ctx context.Context, req *inference.Request) (string, error) {
	parts := []*genai.Part{}
	if req.Media != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Media.Data, req.Media.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Instruction))
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", classify(err)
	}
	res := takeText(resp)
	if strings.TrimSpace(res) == "" {
		return "", utils.NewServiceError(fmt.Errorf("empty response from gemini"), false)
	}
	return res, nil
}

func takeText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	sb := strings.Builder{}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func classify(err error) error {
	var ae genai.APIError
	if errors.As(err, &ae) {
		return inference.ClassifyErr(fmt.Errorf("gemini: %w", err), ae.Code)
	}
	var aep *genai.APIError
	if errors.As(err, &aep) && aep != nil {
		return inference.ClassifyErr(fmt.Errorf("gemini: %w", err), aep.Code)
	}
	return inference.ClassifyErr(fmt.Errorf("gemini: %w", err), 0)
}
