// Copyright (c) 2025 The Stakewheel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides structured logging for the engine, slog based.
// Packages grab a scoped logger once at init:
//
//	var logger = log.WithContext("pkg", "pool")
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger is the logging surface consumed by the rest of the module.
type Logger interface {
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	With(ctx ...any) Logger
}

type logger struct {
	inner *slog.Logger
}

func (l *logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

var (
	level atomic.Value // slog.LevelVar is not comparable; store *slog.LevelVar
	root  atomic.Pointer[logger]
)

func init() {
	lvl := &slog.LevelVar{}
	lvl.Set(slog.LevelInfo)
	level.Store(lvl)
	root.Store(&logger{inner: slog.New(newHandler(os.Stderr, lvl))})
}

func newHandler(w io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
}

// WithContext returns a logger carrying the given context pairs.
func WithContext(ctx ...any) Logger {
	return root.Load().With(ctx...)
}

// SetLevel changes the level of the root logger and all loggers derived from it.
func SetLevel(l slog.Level) {
	level.Load().(*slog.LevelVar).Set(l)
}

// SetOutput redirects the root logger. Loggers already derived keep their
// previous destination; call before wiring components.
func SetOutput(w io.Writer) {
	root.Store(&logger{inner: slog.New(newHandler(w, level.Load().(*slog.LevelVar)))})
}

// Discard silences the root logger, for tests.
func Discard() {
	root.Store(&logger{inner: slog.New(discardHandler{})})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
