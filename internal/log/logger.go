/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log configures the application's slog logger: a console handler, an
// optional rotated JSON file and the session id carried in a context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"goscreenplay/internal/version"
)

// Options controls Init. FromEnv reads them from
//   - GSP_LOG_LEVEL=debug|info|warn|error
//   - GSP_LOG_FORMAT=console|json
//   - GSP_LOG_FILE=<path> (rotated JSON copy of every record)
//   - GSP_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
	// Output receives console records; nil means stderr.
	Output io.Writer
}

var current atomic.Pointer[slog.Logger]

// L returns the application logger, configuring it from the environment on first use.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Init replaces the application logger and slog's default.
func Init(opts Options) {
	ho := &slog.HandlerOptions{Level: parseLevel(opts.Level), AddSource: opts.AddSource}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(out, ho)
	} else {
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: ho.Level, AddSource: ho.AddSource, ReplaceAttr: consoleAttr})
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		w := &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		h = tee{h, slog.NewJSONHandler(w, ho)}
	}

	l := slog.New(sessionHandler{h}).With(
		slog.String("app", "goscreenplay"),
		slog.String("ver", version.String()),
	)
	current.Store(l)
	slog.SetDefault(l)
}

// FromEnv builds Options from the GSP_LOG_* variables.
func FromEnv() Options {
	source, _ := strconv.ParseBool(os.Getenv("GSP_LOG_SOURCE"))
	return Options{
		Level:     getenv("GSP_LOG_LEVEL", "info"),
		Format:    getenv("GSP_LOG_FORMAT", "console"),
		AddSource: source,
		File:      os.Getenv("GSP_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type sessionKey struct{}

// WithSession stores a classification session id in ctx. Records logged with
// that ctx carry it as the "session" attribute.
func WithSession(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session id stored by WithSession.
func SessionFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var levelTags = map[slog.Level]string{
	slog.LevelDebug: "DBG",
	slog.LevelInfo:  "INF",
	slog.LevelWarn:  "WRN",
	slog.LevelError: "ERR",
}

// consoleAttr shortens the time and level of top-level console attributes.
func consoleAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String(slog.TimeKey, a.Value.Time().Format(time.TimeOnly))
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			if tag, ok := levelTags[lvl]; ok {
				return slog.String(slog.LevelKey, tag)
			}
		}
	}
	return a
}

// sessionHandler adds the context's session id to every record.
type sessionHandler struct{ next slog.Handler }

func (h sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := SessionFrom(ctx); id != "" {
		r = r.Clone()
		r.AddAttrs(slog.String("session", id))
	}
	return h.next.Handle(ctx, r)
}

func (h sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return sessionHandler{h.next.WithAttrs(attrs)}
}

func (h sessionHandler) WithGroup(name string) slog.Handler {
	return sessionHandler{h.next.WithGroup(name)}
}

// tee sends records to the console and the log file.
type tee [2]slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	return t[0].Enabled(ctx, level) || t[1].Enabled(ctx, level)
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if herr := h.Handle(ctx, r.Clone()); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tee{t[0].WithAttrs(attrs), t[1].WithAttrs(attrs)}
}

func (t tee) WithGroup(name string) slog.Handler {
	return tee{t[0].WithGroup(name), t[1].WithGroup(name)}
}
