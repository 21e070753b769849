/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package agent

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"goscreenplay/internal/domain"
)

//go:embed response.schema.json
var responseSchema []byte

var schemaLoader = gojsonschema.NewBytesLoader(responseSchema)

// Strategy tags how a response body was understood.
type Strategy string

const (
	StrategyStrict Strategy = "strict"
	StrategyText   Strategy = "text-extraction"
	StrategyNone   Strategy = "none"
)

// ParseResult is the tagged outcome of ParseResponse. Discarded counts decisions
// dropped for a bad index, type or shape. Err is set only with StrategyNone.
type ParseResult struct {
	Strategy  Strategy
	Response  Response
	Discarded int
	Err       error
}

var (
	objectRe = regexp.MustCompile(`\{[^{}]*\}`)
	arrowRe  = regexp.MustCompile(`(?m)^\s*#?(\d+)\s*(?:->|=>|:)\s*([A-Za-z][A-Za-z0-9_\- ]*[A-Za-z0-9])\s*(?:\(\s*([01](?:\.\d+)?)\s*\))?\s*$`)
)

// ParseResponse tries the strict schema parse first and then best-effort
// extraction of decisions from free text.
func ParseResponse(body []byte) ParseResult {
	res, strictErr := parseStrict(body)
	if strictErr == nil {
		return res
	}
	if res, ok := parseText(body); ok {
		return res
	}
	return ParseResult{Strategy: StrategyNone, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, strictErr)}
}

// envelope mirrors Response with decisions left raw for per-item validation.
type envelope struct {
	Status    Status            `json:"status"`
	Model     string            `json:"model"`
	Decisions []json.RawMessage `json:"decisions"`
	Message   string            `json:"message"`
	LatencyMs float64           `json:"latencyMs"`
	Meta      *Meta             `json:"meta,omitempty"`
}

func parseStrict(body []byte) (ParseResult, error) {
	if !json.Valid(body) {
		return ParseResult{}, fmt.Errorf("body is not JSON")
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return ParseResult{}, fmt.Errorf("schema validate: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return ParseResult{}, fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ParseResult{}, fmt.Errorf("decode: %w", err)
	}
	res := ParseResult{Strategy: StrategyStrict, Response: Response{
		Status:    env.Status,
		Model:     env.Model,
		Message:   env.Message,
		LatencyMs: int64(env.LatencyMs),
		Meta:      env.Meta,
	}}
	for _, raw := range env.Decisions {
		if d, ok := decodeDecision(raw); ok {
			res.Response.Decisions = append(res.Response.Decisions, d)
		} else {
			res.Discarded++
		}
	}
	return res, nil
}

// parseText pulls decisions out of a message or a raw body: embedded JSON objects
// first, then "index -> type (confidence)" lines.
func parseText(body []byte) (ParseResult, bool) {
	text := string(body)
	res := ParseResult{Strategy: StrategyText, Response: Response{Status: StatusWarning, Message: "decisions extracted from free text"}}
	var partial struct {
		Status  Status `json:"status"`
		Model   string `json:"model"`
		Message string `json:"message"`
		Meta    *Meta  `json:"meta"`
	}
	if json.Unmarshal(body, &partial) == nil {
		if partial.Message != "" {
			text = partial.Message
		}
		if partial.Status.known() {
			res.Response.Status = partial.Status
		}
		res.Response.Model = partial.Model
		res.Response.Meta = partial.Meta
	}
	for _, obj := range objectRe.FindAllString(text, -1) {
		if !strings.Contains(obj, "itemIndex") {
			continue
		}
		if d, ok := decodeDecision([]byte(obj)); ok {
			res.Response.Decisions = append(res.Response.Decisions, d)
		} else {
			res.Discarded++
		}
	}
	if len(res.Response.Decisions) == 0 {
		for _, m := range arrowRe.FindAllStringSubmatch(text, -1) {
			idx, err := strconv.Atoi(m[1])
			typ, ok := domain.ParseElementType(m[2])
			if err != nil || !ok {
				res.Discarded++
				continue
			}
			conf := 0.0
			if m[3] != "" {
				conf, _ = strconv.ParseFloat(m[3], 64)
			}
			res.Response.Decisions = append(res.Response.Decisions, Decision{ItemIndex: idx, FinalType: string(typ), Confidence: min(conf, 1)})
		}
	}
	return res, len(res.Response.Decisions) > 0
}

// decodeDecision validates one decision: a non-negative integer index, a known
// type and an optional confidence in [0,1].
func decodeDecision(raw []byte) (Decision, bool) {
	var m map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return Decision{}, false
	}
	var idx json.Number
	if json.Unmarshal(m["itemIndex"], &idx) != nil {
		return Decision{}, false
	}
	i, err := strconv.Atoi(idx.String())
	if err != nil || i < 0 {
		return Decision{}, false
	}
	var name string
	if json.Unmarshal(m["finalType"], &name) != nil {
		return Decision{}, false
	}
	typ, ok := domain.ParseElementType(name)
	if !ok {
		return Decision{}, false
	}
	d := Decision{ItemIndex: i, FinalType: string(typ)}
	if c, ok := m["confidence"]; ok {
		if json.Unmarshal(c, &d.Confidence) != nil || d.Confidence < 0 || d.Confidence > 1 {
			return Decision{}, false
		}
	}
	if r, ok := m["reason"]; ok {
		_ = json.Unmarshal(r, &d.Reason)
	}
	return d, true
}
