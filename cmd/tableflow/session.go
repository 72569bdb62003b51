package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/alexisbeaulieu97/tableflow/internal/config"
	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/tableflow"
)

var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// session is one document with an initialized host over its table.
type session struct {
	cfg  *config.Config
	doc  *dom.Document
	host *tableflow.TableFlow
}

func openSession(ctx context.Context, app *AppContext, opts sessionOptions, logOut io.Writer) (*session, error) {
	if err := validateSessionOptions(opts); err != nil {
		return nil, err
	}

	cfg, err := config.ParseConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.StatePath != "" {
		cfg.Storage.Path = opts.StatePath
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	log, err := cfg.NewLogger(logOut)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := cfg.OpenStorage()
	if err != nil {
		return nil, fmt.Errorf("open state storage: %w", err)
	}

	f, err := os.Open(opts.HTMLPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := dom.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", opts.HTMLPath, err)
	}

	host, err := tableflow.New(cfg.HostOptions(), app.Registry,
		tableflow.WithDocument(doc),
		tableflow.WithLogger(log),
		tableflow.WithStorage(store),
	)
	if err != nil {
		return nil, err
	}
	if err := host.Init(ctx); err != nil {
		host.Destroy()
		return nil, err
	}
	host.Drain()

	return &session{cfg: cfg, doc: doc, host: host}, nil
}

func (s *session) Close() {
	s.host.Destroy()
}

// writeDocument renders the document to path, or to w when path is empty.
func (s *session) writeDocument(w io.Writer, path string) error {
	if path == "" {
		return s.doc.Render(w)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.doc.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
