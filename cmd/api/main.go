package main

import (
	"context"
	"errors"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/filer"
	"github.com/airenas/rhemaflow/internal/pkg/inference"
	"github.com/airenas/rhemaflow/internal/pkg/inference/gemini"
	"github.com/airenas/rhemaflow/internal/pkg/inference/openai"
	"github.com/airenas/rhemaflow/internal/pkg/memory"
	"github.com/airenas/rhemaflow/internal/pkg/postgres"
	"github.com/airenas/rhemaflow/internal/pkg/quotes"
	"github.com/airenas/rhemaflow/internal/pkg/service"
	"github.com/airenas/rhemaflow/internal/pkg/transcribe"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
)

const (
	defaultTimeout = 10 * time.Minute
	defaultRetries = 2
	// time left for upload and quote parsing on top of inference calls
	requestSlack = 5 * time.Minute
)

type store interface {
	transcribe.Saver
	quotes.Store
	service.Store
}

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	bindEnv(cfg)

	ctx := context.Background()

	go utils.RunPerfEndpoint(cfg.GetInt("debug.port"))

	data := &service.Data{}
	data.Port = cfg.GetInt("port")
	data.MaxSize = cfg.GetString("upload.maxSize")

	var err error
	data.Filer, err = initFiler(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}

	st, closeFunc, err := initStore(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init store")
	}
	defer closeFunc()
	data.Store = st
	if h, ok := st.(service.Checker); ok {
		data.Health = h
	}

	timeout := defaultV(cfg.GetDuration("provider.timeout"), defaultTimeout)
	retries := defaultRetries
	if cfg.IsSet("provider.retries") {
		retries = cfg.GetInt("provider.retries")
	}
	provider, err := initProvider(ctx, cfg, timeout, retries)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init provider")
	}

	data.Transcriber, err = transcribe.NewService(data.Filer, provider, st)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber")
	}
	data.Extractor, err = quotes.NewService(st, provider)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init quote extractor")
	}
	data.RequestTimeout = requestTimeout(timeout, retries)

	err = service.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func bindEnv(cfg *viper.Viper) {
	_ = cfg.BindEnv("gemini.apiKey", "GEMINI_API_KEY")
	_ = cfg.BindEnv("openai.apiKey", "OPENAI_API_KEY")
}

func initFiler(ctx context.Context, cfg *viper.Viper) (service.Filer, error) {
	switch k := defaultV(cfg.GetString("filer.kind"), "local"); k {
	case "local":
		return filer.NewLocal(defaultV(cfg.GetString("filer.dir"), "uploads"))
	case "minio":
		return filer.NewMinio(ctx, filer.MinioOptions{Bucket: cfg.GetString("filer.bucket"),
			URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
			Secure: cfg.GetBool("filer.https")})
	default:
		return nil, errors.New("unknown filer.kind '" + k + "'")
	}
}

func initStore(ctx context.Context, cfg *viper.Viper) (store, func(), error) {
	switch k := defaultV(cfg.GetString("store.kind"), "memory"); k {
	case "memory":
		return memory.NewStore(), func() {}, nil
	case "postgres":
		dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
		if err != nil {
			return nil, nil, err
		}
		addDBLog(dbConfig)
		dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			return nil, nil, err
		}
		db, err := postgres.NewDB(dbPool)
		if err != nil {
			dbPool.Close()
			return nil, nil, err
		}
		return db, dbPool.Close, nil
	default:
		return nil, nil, errors.New("unknown store.kind '" + k + "'")
	}
}

func initProvider(ctx context.Context, cfg *viper.Viper, timeout time.Duration, retries int) (*inference.Retrying, error) {
	var (
		p   inference.Provider
		err error
	)
	k := defaultV(cfg.GetString("provider.kind"), "gemini")
	switch k {
	case "gemini":
		p, err = gemini.NewClient(ctx, cfg.GetString("gemini.apiKey"), cfg.GetString("provider.model"))
	case "openai":
		p, err = openai.NewClient(openai.Options{Key: cfg.GetString("openai.apiKey"), URL: cfg.GetString("openai.url"),
			ChatModel: cfg.GetString("provider.model"), AudioModel: cfg.GetString("openai.audioModel")})
	default:
		return nil, errors.New("unknown provider.kind '" + k + "'")
	}
	if err != nil {
		var ce *utils.ConfigurationError
		if !errors.As(err, &ce) {
			return nil, err
		}
		goapp.Log.Warn().Err(err).Str("provider", k).Msg("provider disabled, requests will fail")
		p = inference.NewUnconfigured(k, err)
	}
	return inference.NewRetrying(p, timeout, retries, 0)
}

func requestTimeout(timeout time.Duration, retries int) time.Duration {
	return timeout*time.Duration(retries+1) + requestSlack
}

func defaultV[T comparable](v, d T) T {
	var empty T
	if v == empty {
		return d
	}
	return v
}

func addDBLog(dbConfig *pgxpool.Config) {
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		goapp.Log.Debug().Msg("after connect")
		return nil
	}
	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		goapp.Log.Debug().Msg("before acquire")
		return true
	}
	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		goapp.Log.Debug().Msg("after release")
		return true
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
    ____  __                         ________
   / __ \/ /_  ___  ____ ___  ____ _/ ____/ /___ _      __
  / /_/ / __ \/ _ \/ __ ` + "`" + `__ \/ __ ` + "`" + `/ /_  / / __ \ | /| / /
 / _, _/ / / /  __/ / / / / / /_/ / __/ / / /_/ / |/ |/ /
/_/ |_/_/ /_/\___/_/ /_/ /_/\__,_/_/   /_/\____/|__/|__/   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/rhemaflow"))
}
