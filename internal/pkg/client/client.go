package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"
	"github.com/cenkalti/backoff/v4"
)

// HTTPError is a non 2xx server answer
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// UploadData is one media file with its metadata
type UploadData struct {
	FileName string
	Reader   io.Reader
	Size     int64
	Meta     api.Metadata
}

// ProgressFunc receives sent and total file bytes
type ProgressFunc func(sent, total int64)

// Client communicates with the transcription API
type Client struct {
	httpclient    *http.Client
	url           string
	uploadTimeout time.Duration
	timeout       time.Duration
	backoff       func() backoff.BackOff
}

// NewClient creates the API client
func NewClient(urlStr string, uploadTimeout time.Duration) (*Client, error) {
	if urlStr == "" {
		return nil, fmt.Errorf("no url")
	}
	if !strings.HasPrefix(urlStr, "http") {
		return nil, fmt.Errorf("no http in url '%s'", urlStr)
	}
	res := &Client{url: strings.TrimSuffix(urlStr, "/"), uploadTimeout: uploadTimeout, timeout: 30 * time.Second,
		httpclient: &http.Client{Transport: newTransport()}, backoff: newSimpleBackoff}
	if res.uploadTimeout <= 0 {
		res.uploadTimeout = 40 * time.Minute
	}
	return res, nil
}

// Upload streams media to the API and waits for the transcript. It is never retried
func (c *Client) Upload(ctx context.Context, data *UploadData, progress ProgressFunc) (*api.TranscribeResult, error) {
	if data == nil || data.Reader == nil || data.FileName == "" {
		return nil, fmt.Errorf("no file")
	}
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(writer, data, progress))
	}()
	defer pr.Close()

	ctx, cancelF := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/transcribe", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	goapp.Log.Info().Str("url", req.URL.String()).Str("file", data.FileName).Msg("upload")
	var res api.TranscribeResult
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	if res.ID == "" {
		return nil, fmt.Errorf("can't get ID from response")
	}
	return &res, nil
}

func writeForm(writer *multipart.Writer, data *UploadData, progress ProgressFunc) error {
	for _, p := range [][2]string{{api.PrmTitle, data.Meta.Title}, {api.PrmSpeaker, data.Meta.Speaker},
		{api.PrmTags, data.Meta.Tags}} {
		if p[1] == "" {
			continue
		}
		if err := writer.WriteField(p[0], p[1]); err != nil {
			return fmt.Errorf("can't add param: %w", err)
		}
	}
	part, err := writer.CreateFormFile(api.PrmFile, data.FileName)
	if err != nil {
		return fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err = io.Copy(part, &progressReader{r: data.Reader, total: data.Size, f: progress}); err != nil {
		return fmt.Errorf("can't add file content to request: %w", err)
	}
	return writer.Close()
}

// List returns transcript summaries, newest first
func (c *Client) List(ctx context.Context) ([]*persistence.Summary, error) {
	res := []*persistence.Summary{}
	if err := c.get(ctx, c.url+"/transcripts", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Get returns one transcript
func (c *Client) Get(ctx context.Context, id string) (*persistence.Transcript, error) {
	var res persistence.Transcript
	if err := c.get(ctx, fmt.Sprintf("%s/transcripts/%s", c.url, url.PathEscape(id)), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExtractQuotes runs quote extraction for the transcript
func (c *Client) ExtractQuotes(ctx context.Context, id string) ([]persistence.Quote, error) {
	ctx, cancelF := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/transcripts/%s/extract-quotes", c.url, url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	var res api.QuotesResult
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res.Quotes, nil
}

// Delete removes the transcript with its media
func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, cancelF := context.WithTimeout(ctx, c.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/transcripts/%s", c.url, url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	var res api.MessageResult
	return c.do(req, &res)
}

func (c *Client) get(ctx context.Context, urlStr string, res interface{}) error {
	_, err := goapp.InvokeWithBackoff(ctx, func() (interface{}, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, false, err
		}
		err = c.do(req, res)
		if err != nil {
			var he *HTTPError
			if errors.As(err, &he) {
				return nil, goapp.IsRetryableCode(he.Code), err
			}
			return nil, goapp.IsRetryableErr(err), err
		}
		return nil, false, nil
	}, c.backoff())
	return err
}

func (c *Client) do(req *http.Request, res interface{}) error {
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readHTTPError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
		return fmt.Errorf("can't decode response: %w", err)
	}
	return nil
}

func readHTTPError(resp *http.Response) error {
	res := &HTTPError{Code: resp.StatusCode}
	var er api.ErrorResult
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 10000))
	if err := json.Unmarshal(b, &er); err == nil && er.Error != "" {
		res.Message = er.Error
	}
	return res
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	f     ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.f != nil {
			p.f(p.sent, p.total)
		}
	}
	return n, err
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxIdleConnsPerHost = 10
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
