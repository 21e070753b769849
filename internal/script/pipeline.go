/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script turns raw screenplay text into classified drafts. The Classifier
// repairs each line, merges importer breakage into the previous draft, runs the
// ordered rule chain and keeps session memory in step with every push.
package script

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"goscreenplay/internal/detect"
	"goscreenplay/internal/domain"
	applog "goscreenplay/internal/log"
	"goscreenplay/internal/memory"
	"goscreenplay/internal/repair"
	"goscreenplay/internal/resolve"
	"goscreenplay/internal/telemetry"
)

// maxLineBytes bounds a single input line for the scanner.
const maxLineBytes = 1 << 20

// CorrectionHook may rewrite the finished sequence. An error, a panic or an empty
// result leaves the sequence as classified.
type CorrectionHook func([]domain.Draft) ([]domain.Draft, error)

// Options configures a Classifier. Zero values select the defaults.
type Options struct {
	ContextWindow  int
	MemoryCapacity int
	// Memory lets callers supply a persisted tracker; nil gives a fresh SessionMemory.
	Memory memory.Memory
	Hook   CorrectionHook
	Logger *slog.Logger
}

// Classifier runs the classification pipeline over one session memory; it is not
// safe for concurrent use.
type Classifier struct {
	window int
	mem    memory.Memory
	hook   CorrectionHook
	log    *slog.Logger
	last   Stats
}

// Stats counts one classification run.
type Stats struct {
	Lines       int
	Drafts      int
	Revalidated int
}

// NewClassifier builds a Classifier from opts.
func NewClassifier(opts Options) *Classifier {
	c := &Classifier{window: opts.ContextWindow, mem: opts.Memory, hook: opts.Hook, log: opts.Logger}
	if c.window <= 0 {
		c.window = domain.DefaultContextWindow
	}
	if c.mem == nil {
		c.mem = memory.New(opts.MemoryCapacity)
	}
	if c.log == nil {
		c.log = applog.WithComponent("classifier")
	}
	return c
}

// Memory exposes the session memory the classifier writes to.
func (c *Classifier) Memory() memory.Memory { return c.mem }

// LastRun reports the counts of the most recent run.
func (c *Classifier) LastRun() Stats { return c.last }

// ClassifyText splits input on line breaks and classifies the lines.
func (c *Classifier) ClassifyText(input string) ([]domain.Draft, []Error) {
	var errs []Error
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: len(lines) + 1, Column: 1, Message: err.Error()})
	}
	return c.ClassifyLines(lines), errs
}

// ClassifyLines classifies raw lines in order. Blank lines produce no draft.
func (c *Classifier) ClassifyLines(lines []string) []domain.Draft {
	r := c.begin()
	for _, raw := range lines {
		r.feed(raw)
	}
	c.log.Debug("classified", slog.Int("lines", len(lines)), slog.Int("drafts", len(r.drafts)), slog.Int("revalidated", r.revalidated))
	c.last = Stats{Lines: len(lines), Drafts: len(r.drafts), Revalidated: r.revalidated}
	return c.applyHook(r.drafts)
}

// ClassifyBlocks accepts pre-extracted typed blocks. A block whose type resolves is
// taken as given; any other block goes through full detection in sequence.
func (c *Classifier) ClassifyBlocks(blocks []domain.TypedBlock) []domain.Draft {
	r := c.begin()
	for _, b := range blocks {
		typ, ok := domain.ParseElementType(b.Type)
		if !ok {
			r.feed(b.Text)
			continue
		}
		text := repair.RepairLine(b.Text)
		if text == "" {
			continue
		}
		d := domain.Draft{Type: typ, Text: text, Confidence: 100, Method: domain.MethodPatternMatch}
		if typ == domain.TypeSceneHeaderTopLine {
			tl := detect.DetectTopLine(text)
			d.Header1, d.Header2 = tl.Header1, tl.Header2
			if tl.Kind == detect.TopLineNone {
				d.Header1 = text
			}
		}
		r.push(d, false)
	}
	c.last = Stats{Lines: len(blocks), Drafts: len(r.drafts), Revalidated: r.revalidated}
	return c.applyHook(r.drafts)
}

func (c *Classifier) applyHook(drafts []domain.Draft) (out []domain.Draft) {
	if c.hook == nil {
		return drafts
	}
	prior := drafts
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Warn("correction hook panicked; keeping classified sequence", slog.String("panic", fmt.Sprint(rec)))
			out = prior
		}
	}()
	res, err := c.hook(append([]domain.Draft(nil), drafts...))
	if err != nil {
		c.log.Warn("correction hook failed; keeping classified sequence", slog.String("error", err.Error()))
		return prior
	}
	if len(res) == 0 {
		c.log.Warn("correction hook returned nothing; keeping classified sequence")
		return prior
	}
	for _, d := range res {
		if !d.Type.Valid() {
			c.log.Warn("correction hook returned an unknown type; keeping classified sequence", slog.String("type", string(d.Type)))
			return prior
		}
	}
	return res
}

// begin starts a run. Each run sees only its own lines as recent context, so
// reclassifying the same text in a continued session gives the same drafts.
func (c *Classifier) begin() *run {
	c.mem.BeginRun()
	return &run{c: c}
}

// run is the state of one pass over the input.
type run struct {
	c           *Classifier
	drafts      []domain.Draft
	revalidated int
}

func (r *run) feed(raw string) {
	text := repair.RepairLine(raw)
	if text == "" {
		return
	}
	if r.foldIntoPrevious(text) {
		return
	}
	replace := false
	if n := len(r.drafts); n > 0 && r.drafts[n-1].Type == domain.TypeAction {
		if name, ok := repair.MergeBrokenCharacterName(r.drafts[n-1].Text, text); ok {
			r.drafts = r.drafts[:n-1]
			text = name
			replace = true
		}
	}
	in := &lineInput{
		text:   text,
		ctx:    domain.BuildContext(r.drafts, r.c.window),
		mem:    r.c.mem,
		action: detect.CollectActionEvidence(text),
	}
	produced, via := classify(in)
	for i, d := range produced {
		d, demoted := revalidate(d, domain.BuildContext(r.drafts, r.c.window))
		if demoted {
			r.revalidated++
			r.c.log.Debug("draft revalidated", slog.String("rule", via), slog.String("type", string(produced[i].Type)))
		}
		r.push(d, replace && i == 0)
	}
}

// foldIntoPrevious handles the two in-place merges: a wrapped dialogue continuation,
// and a time/location line completing a number-only top line.
func (r *run) foldIntoPrevious(text string) bool {
	n := len(r.drafts)
	if n == 0 {
		return false
	}
	prev := r.drafts[n-1]
	switch {
	case repair.ShouldMergeWrappedLines(prev.Text, text, prev.Type):
		prev.Text = repair.MergeWrapped(prev.Text, text)
	case prev.Type == domain.TypeSceneHeaderTopLine && prev.Header1 != "" && prev.Header2 == "" &&
		detect.DetectTopLine(text).Kind == detect.TopLineTimeLocationOnly:
		prev.Header2 = text
		prev.Text = prev.Text + " - " + text
		prev.Confidence = resolve.ConfidenceTopLine
	default:
		return false
	}
	r.drafts[n-1] = prev
	r.c.mem.ReplaceLast(memory.Entry{Index: n - 1, Type: prev.Type, Text: prev.Text, Confidence: prev.Confidence})
	return true
}

func (r *run) push(d domain.Draft, replace bool) {
	d.Confidence = domain.ClampConfidence(d.Confidence)
	idx := len(r.drafts)
	r.drafts = append(r.drafts, d)
	e := memory.Entry{Index: idx, Type: d.Type, Text: d.Text, Confidence: d.Confidence}
	if replace {
		r.c.mem.ReplaceLast(e)
	} else {
		r.c.mem.Record(e)
	}
	telemetry.ObserveDraft(string(d.Type), string(d.Method))
}
