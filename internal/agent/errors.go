/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package agent

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNothingToEscalate means no line qualified; no request was made.
	ErrNothingToEscalate = errors.New("agent: nothing to escalate")
	// ErrDeadlineExceeded means the overall deadline elapsed, whatever retries were left.
	ErrDeadlineExceeded = errors.New("agent: escalation deadline exceeded")
	// ErrAborted means a newer request or the caller cancelled this one.
	ErrAborted = errors.New("agent: escalation aborted")
	// ErrMalformedResponse means neither parse strategy produced a response.
	ErrMalformedResponse = errors.New("agent: malformed response")
	// ErrServiceError means the service answered with status "error".
	ErrServiceError = errors.New("agent: service reported an error")
	// ErrUnresolvedForced means a forced line did not get an effective correction.
	ErrUnresolvedForced = errors.New("agent: forced lines left unresolved")
	// ErrNoEndpoint means the escalator has no endpoint configured.
	ErrNoEndpoint = errors.New("agent: no endpoint configured")
)

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("agent: unexpected status %d: %s", e.Code, e.Body)
}

// retryableError marks a transient failure of one attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

func retryable(err error) error { return retryableError{err: err} }

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooEarly:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// IsRetryable reports whether err is a transient failure: an abort, a network
// error or a retryable HTTP status.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAborted) {
		return true
	}
	var re retryableError
	if errors.As(err, &re) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus[se.Code]
	}
	return false
}
