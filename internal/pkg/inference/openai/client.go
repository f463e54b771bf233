package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel used for text only requests
	DefaultChatModel = "gpt-4o-mini"
	// DefaultAudioModel used for media requests
	DefaultAudioModel = openai.Whisper1
	markEvery         = 30.0
)

// formats accepted by the transcription endpoint
var audioExt = map[string]bool{".flac": true, ".m4a": true, ".mp3": true, ".mp4": true, ".mpeg": true,
	".mpga": true, ".oga": true, ".ogg": true, ".wav": true, ".webm": true}

type api interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options for the client
type Options struct {
	Key        string
	URL        string
	ChatModel  string
	AudioModel string
}

// Client calls OpenAI compatible API: whisper for media, chat for text
type Client struct {
	api        api
	chatModel  string
	audioModel string
}

// NewClient creates the client
func NewClient(opt Options) (*Client, error) {
	if err := inference.CheckKey("OPENAI_API_KEY", opt.Key); err != nil {
		return nil, err
	}
	cfg := openai.DefaultConfig(opt.Key)
	if opt.URL != "" {
		cfg.BaseURL = opt.URL
	}
	res := &Client{api: openai.NewClientWithConfig(cfg), chatModel: opt.ChatModel, audioModel: opt.AudioModel}
	if res.chatModel == "" {
		res.chatModel = DefaultChatModel
	}
	if res.audioModel == "" {
		res.audioModel = DefaultAudioModel
	}
	goapp.Log.Info().Str("url", cfg.BaseURL).Str("chat", res.chatModel).Str("audio", res.audioModel).Msg("openai")
	return res, nil
}

// Name returns provider name
func (c *Client) Name() string {
	return "openai"
}

// Ready is always ok for a constructed client
func (c *Client) Ready() error {
	return nil
}

// Generate transcribes media or completes a text instruction
func (c *Client) Generate(ctx context.Context, req *inference.Request) (string, error) {
	var res string
	var err error
	if req.Media != nil {
		res, err = c.transcribe(ctx, req)
	} else {
		res, err = c.chat(ctx, req)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res) == "" {
		return "", utils.NewServiceError(fmt.Errorf("empty response from openai"), false)
	}
	return res, nil
}

func (c *Client) transcribe(ctx context.Context, req *inference.Request) (string, error) {
	if err := checkFormat(req.Media.Name); err != nil {
		return "", err
	}
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.audioModel,
		FilePath: req.Media.Name,
		Reader:   bytes.NewReader(req.Media.Data),
		Prompt:   req.Instruction,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return "", classify(err)
	}
	segs := make([]segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, segment{start: s.Start, text: s.Text})
	}
	if len(segs) == 0 {
		return strings.TrimSpace(resp.Text), nil
	}
	return renderSegments(segs), nil
}

func (c *Client) chat(ctx context.Context, req *inference.Request) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Instruction,
			},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func checkFormat(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if audioExt[ext] {
		return nil
	}
	exts := make([]string, 0, len(audioExt))
	for k := range audioExt {
		exts = append(exts, k)
	}
	sort.Strings(exts)
	return utils.NewValidationError("Unsupported file type (%s) for the openai provider. Use one of: %s", ext,
		strings.Join(exts, ", "))
}

type segment struct {
	start float64
	text  string
}

// renderSegments joins segments into paragraphs, each starting with a [MM:SS] mark
// at least markEvery seconds after the previous one
func renderSegments(segs []segment) string {
	sb := strings.Builder{}
	last := -markEvery
	for _, s := range segs {
		t := strings.TrimSpace(s.text)
		if t == "" {
			continue
		}
		if s.start-last >= markEvery {
			if sb.Len() > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(fmt.Sprintf("[%s] ", toMMSS(s.start)))
			last = s.start
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(t)
	}
	return sb.String()
}

func toMMSS(sec float64) string {
	s := int(sec)
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func classify(err error) error {
	var ae *openai.APIError
	if errors.As(err, &ae) {
		return inference.ClassifyErr(fmt.Errorf("openai: %w", err), ae.HTTPStatusCode)
	}
	var re *openai.RequestError
	if errors.As(err, &re) {
		return inference.ClassifyErr(fmt.Errorf("openai: %w", err), re.HTTPStatusCode)
	}
	return inference.ClassifyErr(fmt.Errorf("openai: %w", err), 0)
}
