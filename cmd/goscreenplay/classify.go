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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"goscreenplay/internal/backend"
	"goscreenplay/internal/domain"
	"goscreenplay/internal/review"
	"goscreenplay/internal/script"
)

// runFlags are shared by the commands that classify input.
type runFlags struct {
	session  string
	escalate bool
	blocks   bool
	format   string
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVar(&f.session, "session", "", "session id; continues stored memory when the store is persistent")
	cmd.Flags().BoolVar(&f.escalate, "escalate", false, "send suspicious lines to the configured review agent")
	cmd.Flags().BoolVar(&f.blocks, "blocks", false, `input is a JSON array of typed blocks ({"type":..., "text":...})`)
}

func newClassifyCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "classify [file]",
		Short: "Classify every line of a script (stdin when no file or -)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.classify(cmd.Context(), args, f)
			if err != nil {
				return err
			}
			return writeClassification(a.out, res, f.format)
		},
	}
	addRunFlags(cmd, &f)
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "output format: text, json or outline")
	return cmd
}

func newReviewCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "review [file]",
		Short: "Classify a script and print the lines that need attention",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.classify(cmd.Context(), args, f)
			if err != nil {
				return err
			}
			if f.format == "json" {
				return writeJSON(a.out, res.Review)
			}
			if _, err := io.WriteString(a.out, review.RenderText(res.Review)); err != nil {
				return err
			}
			return writeEscalation(a.out, res.Escalation)
		},
	}
	addRunFlags(cmd, &f)
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "output format: text or json")
	return cmd
}

// classify reads the input named by args and runs it through the service.
func (a *app) classify(ctx context.Context, args []string, f runFlags) (backend.ClassifyResult, error) {
	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	data, err := readInput(a.in, name)
	if err != nil {
		return backend.ClassifyResult{}, err
	}
	req := backend.ClassifyRequest{SessionID: f.session, Escalate: f.escalate}
	if f.blocks {
		if err := json.Unmarshal(data, &req.Blocks); err != nil {
			return backend.ClassifyResult{}, fmt.Errorf("parse blocks from %s: %w", name, err)
		}
	} else {
		req.Text = string(data)
	}

	store, runs, err := a.stores(ctx)
	if err != nil {
		return backend.ClassifyResult{}, err
	}
	svc, err := a.service(store, runs, f.escalate)
	if err != nil {
		return backend.ClassifyResult{}, err
	}

	var partial *backend.ClassifyResult
	if a.scope != nil {
		a.scope.Input = name
		scope := a.scope
		scope.Salvage = func() (string, error) { return salvage(scope.ReportDir, partial) }
	}
	res, err := svc.Classify(ctx, req)
	if err != nil {
		return res, err
	}
	partial = &res
	if a.scope != nil {
		a.scope.Session = res.SessionID
	}
	return res, nil
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// salvage writes the last finished result next to the crash reports. An empty
// dir means os.TempDir().
func salvage(dir string, res *backend.ClassifyResult) (string, error) {
	if res == nil {
		return "", errors.New("no finished classification to salvage")
	}
	f, err := os.CreateTemp(dir, "goscreenplay-salvage-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(res); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeClassification(w io.Writer, res backend.ClassifyResult, format string) error {
	switch format {
	case "json":
		return writeJSON(w, res)
	case "outline":
		return writeOutline(w, script.BuildOutline(res.Drafts))
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	for i, d := range res.Drafts {
		if _, err := fmt.Fprintf(w, "%4d  %-24s %3d  %-16s %s\n", i+1, d.Type, d.Confidence, d.Method, d.Text); err != nil {
			return err
		}
	}
	for _, e := range res.Errors {
		if _, err := fmt.Fprintf(w, "error: line %d: %s\n", e.Line, e.Message); err != nil {
			return err
		}
	}
	return writeEscalation(w, res.Escalation)
}

func writeEscalation(w io.Writer, s *backend.EscalationSummary) error {
	if s == nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "escalation: %s (selected %d, applied %d, attempts %d, %dms)", s.Outcome, s.Selected, len(s.Applied), s.Attempts, s.ElapsedMs)
	if err == nil && s.Error != "" {
		_, err = fmt.Fprintf(w, ": %s", s.Error)
	}
	if err == nil {
		_, err = fmt.Fprintln(w)
	}
	return err
}

func writeOutline(w io.Writer, o script.Outline) error {
	var b strings.Builder
	if n := len(o.Preamble); n > 0 {
		fmt.Fprintf(&b, "preamble: %d line(s)\n", n)
	}
	for i, s := range o.Scenes {
		head := strings.TrimSpace(strings.Join(nonEmpty(s.Header1, s.Header2, s.Location), " | "))
		fmt.Fprintf(&b, "scene %d: %s\n", i+1, head)
		if len(s.Characters) > 0 {
			fmt.Fprintf(&b, "  characters: %s\n", strings.Join(s.Characters, "، "))
		}
		fmt.Fprintf(&b, "  lines: %d, dialogue: %d\n", len(s.Drafts), countType(s.Drafts, domain.TypeDialogue))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func countType(drafts []domain.Draft, t domain.ElementType) int {
	n := 0
	for _, d := range drafts {
		if d.Type == t {
			n++
		}
	}
	return n
}
