/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"goscreenplay/internal/review"
)

// watchDebounce collapses the burst of events one editor save produces.
const watchDebounce = 200 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Reclassify a script every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), args[0], f)
		},
	}
	addRunFlags(cmd, &f)
	return cmd
}

// watch watches the file's directory so editors that replace the file on save
// keep triggering runs.
func (a *app) watch(ctx context.Context, path string, f runFlags) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	l := a.log.With(slog.String("file", abs))

	runOnce := func() {
		res, err := a.classify(ctx, []string{abs}, f)
		if err != nil {
			l.Error("reclassify failed", slog.Any("err", err))
			return
		}
		// later runs continue the first run's session
		f.session = res.SessionID
		fmt.Fprintf(a.out, "[%s] %d drafts, %s\n", time.Now().Format(time.TimeOnly), len(res.Drafts), reviewSummary(res.Review))
		_ = writeEscalation(a.out, res.Escalation)
	}
	runOnce()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				l.Warn("event overflow; reclassifying")
				timer.Reset(watchDebounce)
				continue
			}
			l.Error("watch error", slog.Any("err", err))
		case <-timer.C:
			runOnce()
		}
	}
}

func reviewSummary(p review.Packet) string {
	return fmt.Sprintf("%d flagged (forced %d, candidates %d, local %d)",
		len(p.Lines), p.Count(review.BandAgentForced), p.Count(review.BandAgentCandidate), p.Count(review.BandLocalReview))
}
