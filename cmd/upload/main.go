package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/client"
	"github.com/airenas/rhemaflow/internal/pkg/lifecycle"
	"github.com/labstack/gommon/color"
)

type params struct {
	url      string
	title    string
	speaker  string
	tags     string
	quotes   bool
	list     bool
	timeout  time.Duration
	fileName string
}

func main() {
	prm, err := parseParams(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, prm, os.Stdout); err != nil {
		goapp.Log.Error().Err(err).Send()
		os.Exit(1)
	}
}

func parseParams(args []string) (*params, error) {
	res := &params{}
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.StringVar(&res.url, "url", "http://localhost:5000", "API URL")
	fs.StringVar(&res.title, "title", "", "Title, file name without extension by default")
	fs.StringVar(&res.speaker, "speaker", "", "Speaker")
	fs.StringVar(&res.tags, "tags", "", "Comma separated tags")
	fs.BoolVar(&res.quotes, "quotes", false, "Extract quotes after the transcript is ready")
	fs.BoolVar(&res.list, "list", false, "List transcripts and exit")
	fs.DurationVar(&res.timeout, "timeout", 40*time.Minute, "Upload timeout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <file>\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if res.list {
		return res, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected one file, got %d", fs.NArg())
	}
	res.fileName = fs.Arg(0)
	return res, nil
}

func run(ctx context.Context, prm *params, out io.Writer) error {
	cl, err := client.NewClient(prm.url, prm.timeout)
	if err != nil {
		return fmt.Errorf("can't init client: %w", err)
	}
	if prm.list {
		return list(ctx, cl, out)
	}

	m, err := lifecycle.New(cl)
	if err != nil {
		return err
	}
	pr := newPrinter(out)
	m.OnChange(pr.show)

	src, err := newSource(prm.fileName)
	if err != nil {
		return err
	}
	if err := m.Select(src); err != nil {
		return err
	}
	meta := m.State().Meta
	if prm.title != "" {
		meta.Title = prm.title
	}
	meta.Speaker, meta.Tags = prm.speaker, prm.tags
	if err := m.SetMetadata(meta); err != nil {
		return err
	}

	id, err := m.Start(ctx)
	if err != nil {
		return err
	}
	tr, err := cl.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("can't load transcript: %w", err)
	}
	fmt.Fprintf(out, "\n%s\n", tr.Text)

	if !prm.quotes {
		return nil
	}
	fmt.Fprintln(out, pr.cl.Yellow("extracting quotes..."))
	quotes, err := cl.ExtractQuotes(ctx, id)
	if err != nil {
		return fmt.Errorf("can't extract quotes: %w", err)
	}
	for i, q := range quotes {
		fmt.Fprintf(out, "%2d. [%s] %s (impact %d)\n", i+1, q.Timestamp, q.Text, q.Impact)
		if len(q.Themes) > 0 {
			fmt.Fprintf(out, "    %s\n", pr.cl.Grey(strings.Join(q.Themes, ", ")))
		}
	}
	return nil
}

func list(ctx context.Context, cl *client.Client, out io.Writer) error {
	res, err := cl.List(ctx)
	if err != nil {
		return fmt.Errorf("can't list transcripts: %w", err)
	}
	for _, s := range res {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d quotes\n", s.ID, s.Date, s.Title, s.Speaker, len(s.Quotes))
	}
	return nil
}

func newSource(fileName string) (*lifecycle.Source, error) {
	st, err := os.Stat(fileName)
	if err != nil {
		return nil, fmt.Errorf("can't read file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("'%s' is a dir", fileName)
	}
	return &lifecycle.Source{Name: filepath.Base(fileName), Size: st.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(fileName) }}, nil
}

type printer struct {
	lock      sync.Mutex
	out       io.Writer
	cl        *color.Color
	lastPhase lifecycle.Phase
	lastPct   int
}

func newPrinter(out io.Writer) *printer {
	res := &printer{out: out, cl: color.New(), lastPhase: lifecycle.Idle, lastPct: -1}
	res.cl.SetOutput(out)
	return res
}

func (p *printer) show(s lifecycle.State) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if s.Phase != p.lastPhase {
		p.lastPhase = s.Phase
		switch s.Phase {
		case lifecycle.Selected:
			fmt.Fprintf(p.out, "%s %s\n", p.cl.Cyan(s.Phase.String()), s.FileName)
		case lifecycle.Uploading, lifecycle.Processing:
			fmt.Fprintln(p.out, p.cl.Yellow(s.Phase.String()))
		case lifecycle.Done:
			fmt.Fprintf(p.out, "%s %s\n", p.cl.Green(s.Phase.String()), s.ID)
		case lifecycle.Error:
			fmt.Fprintf(p.out, "%s %s\n", p.cl.Red(s.Phase.String()), s.Message)
		}
	}
	if s.Phase == lifecycle.Uploading && s.Progress != p.lastPct && s.Progress%10 == 0 {
		fmt.Fprintf(p.out, "  %3d%%\n", s.Progress)
	}
	p.lastPct = s.Progress
}
