package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/intake"
	"github.com/airenas/rhemaflow/internal/pkg/persistence"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Filer provides media storage
type Filer interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
	DeleteFile(ctx context.Context, name string) error
}

// Store provides transcript records
type Store interface {
	Get(ctx context.Context, id string) (*persistence.Transcript, error)
	List(ctx context.Context) ([]*persistence.Summary, error)
	Delete(ctx context.Context, id string) (*persistence.Transcript, error)
}

// Transcriber makes a transcript from a stored media
type Transcriber interface {
	Ready() error
	Transcribe(ctx context.Context, media *intake.Media, meta *api.Metadata) (*persistence.Transcript, error)
}

// Extractor re-derives quotes of a transcript
type Extractor interface {
	Extract(ctx context.Context, id string) ([]persistence.Quote, error)
}

// Checker reports if a dependency is alive
type Checker interface {
	Live(ctx context.Context) error
}

// Data keeps data required for service work
type Data struct {
	Port           int
	MaxSize        string
	RequestTimeout time.Duration
	Filer          Filer
	Store          Store
	Transcriber    Transcriber
	Extractor      Extractor
	// optional
	Health Checker
}

const (
	defaultMaxSize = "500M"
	liveMessage    = "RhemaFlows API running"
)

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP RhemaFlow service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 15 * time.Minute
	e.Server.WriteTimeout = data.RequestTimeout

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Filer == nil {
		return fmt.Errorf("no filer")
	}
	if data.Store == nil {
		return fmt.Errorf("no store")
	}
	if data.Transcriber == nil {
		return fmt.Errorf("no transcriber")
	}
	if data.Extractor == nil {
		return fmt.Errorf("no extractor")
	}
	if data.RequestTimeout <= 0 {
		return fmt.Errorf("wrong request timeout %v", data.RequestTimeout)
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("rhemaflow_api", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = errorHandler
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(maxSize(data.MaxSize)))
	promMdlw.Use(e)

	e.GET("/", root(data))
	e.GET("/live", live(data))
	addRoutes(e.Group(""), data)
	addRoutes(e.Group("/api"), data)

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func addRoutes(g *echo.Group, data *Data) {
	g.POST("/transcribe", transcribe(data))
	g.GET("/transcripts", list(data))
	g.GET("/transcripts/:id", get(data))
	g.GET("/transcripts/:id/media", media(data))
	g.POST("/transcripts/:id/extract-quotes", extractQuotes(data))
	g.DELETE("/transcripts/:id", remove(data))
}

func maxSize(s string) string {
	if s == "" {
		return defaultMaxSize
	}
	return s
}

func root(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, api.LiveResult{Status: "ok", Message: liveMessage})
	}
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		if data.Health != nil {
			if err := data.Health.Live(c.Request().Context()); err != nil {
				goapp.Log.Error().Err(err).Msg("not live")
				return c.JSONBlob(http.StatusServiceUnavailable, []byte(`{"service":"ERR"}`))
			}
		}
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

func transcribe(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("transcribe method")()
		ctx := c.Request().Context()

		form, err := c.MultipartForm()
		if err != nil {
			if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
				return echo.ErrStatusRequestEntityTooLarge
			}
			goapp.Log.Warn().Err(err).Msg("no multipart form")
			return intakeError("No file provided")
		}
		defer cleanFiles(form)

		m, err := intake.Validate(form)
		if err != nil {
			return err
		}
		meta := intake.TakeMetadata(form)
		if err := data.Transcriber.Ready(); err != nil {
			return err
		}
		if err := intake.Save(ctx, data.Filer, m); err != nil {
			return err
		}
		res, err := data.Transcriber.Transcribe(ctx, m, meta)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.TranscribeResult{ID: res.ID, Message: "Transcription complete", Transcript: res})
	}
}

func list(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		res, err := data.Store.List(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	}
}

func get(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		res, err := data.Store.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, res)
	}
}

func media(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("media method")()
		ctx := c.Request().Context()
		t, err := data.Store.Get(ctx, c.Param("id"))
		if err != nil {
			return err
		}
		goapp.Log.Info().Str("file", t.MediaPath).Msg("loading")
		file, err := data.Filer.LoadFile(ctx, t.MediaPath)
		if err != nil {
			return err
		}
		defer file.Close()
		name := filepath.Base(t.MediaPath)
		w := c.Response()
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		http.ServeContent(w, c.Request(), name, t.Created, file)
		return nil
	}
}

func extractQuotes(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("extract method")()
		res, err := data.Extractor.Extract(c.Request().Context(), c.Param("id"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, api.QuotesResult{Quotes: res})
	}
}

func remove(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		t, err := data.Store.Delete(ctx, c.Param("id"))
		if err != nil {
			return err
		}
		if t.MediaPath != "" {
			if err := data.Filer.DeleteFile(ctx, t.MediaPath); err != nil {
				goapp.Log.Error().Err(err).Str("ID", t.ID).Str("file", t.MediaPath).Msg("can't delete media")
			}
		}
		goapp.Log.Info().Str("ID", t.ID).Msg("deleted")
		return c.JSON(http.StatusOK, api.MessageResult{Message: "Deleted"})
	}
}

func cleanFiles(f interface{ RemoveAll() error }) {
	if err := f.RemoveAll(); err != nil {
		goapp.Log.Warn().Err(err).Msg("can't remove multipart files")
	}
}
