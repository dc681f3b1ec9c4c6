// Package state defines shared program state.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"folio/config"
	"folio/store"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// export subcommand
	Overwrite  bool
	Stylesheet []byte

	db      *store.Store
	started time.Time
	undoLog func()
}

// ContextWithEnv returns context carrying fresh program state.
func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &LocalEnv{started: time.Now()})
}

// EnvFromContext panics when ctx was not prepared by ContextWithEnv.
func EnvFromContext(ctx context.Context) *LocalEnv {
	env, ok := ctx.Value(envKey{}).(*LocalEnv)
	if !ok {
		panic("program state is missing from context")
	}
	return env
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.started)
}

// RedirectStdLog sends output of standard "log" package to program logger
// until RestoreStdLog is called.
func (e *LocalEnv) RedirectStdLog() {
	if e.Log != nil {
		e.undoLog = zap.RedirectStdLog(e.Log)
	}
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.undoLog != nil {
		e.undoLog()
		e.undoLog = nil
	}
}

// Store opens configured database on first use, subsequent calls return the
// same connection.
func (e *LocalEnv) Store() (*store.Store, error) {
	if e.db != nil {
		return e.db, nil
	}
	if e.Cfg == nil {
		return nil, errors.New("configuration is not loaded")
	}
	db, err := store.Open(e.Cfg.Store.Path, e.Log)
	if err != nil {
		return nil, fmt.Errorf("unable to open store: %w", err)
	}
	e.db = db
	return db, nil
}

// CloseStore releases database if it was opened.
func (e *LocalEnv) CloseStore() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}
