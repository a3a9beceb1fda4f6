// Package backend defines the contracts between the relay core and the
// external services it bridges to: a content fetcher, a question-answer
// service and a code-execution service.
package backend

import (
	"context"
	"errors"
)

// ErrNotConfigured marks a backend that is missing a required credential.
// Handlers show a distinct user-facing message for this case, so adapters
// must wrap it (errors.Is) rather than return a generic error.
var ErrNotConfigured = errors.New("backend is not configured")

// ExecResult is the normalized outcome of a code-execution run. Success is
// the authoritative field; it is not derived from ReturnCode.
type ExecResult struct {
	Stdout     string
	Stderr     string
	ReturnCode int
	Success    bool
}

type UpdateKind string

const (
	UpdateStatus   UpdateKind = "status"
	UpdateProgress UpdateKind = "progress"
	UpdateResult   UpdateKind = "result"
)

// Update is one progressive event from a streaming backend run. A run emits
// zero or more status/progress updates followed by exactly one terminal
// update (Result set on success of the call, Err set when the call itself
// failed), after which the channel is closed.
type Update struct {
	Kind    UpdateKind
	Message string
	Result  *ExecResult
	Err     error
}

// Terminal reports whether the update ends the stream.
func (u Update) Terminal() bool {
	return u.Err != nil || u.Kind == UpdateResult
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Answerer interface {
	Ask(ctx context.Context, question string) (string, error)
}

type Runner interface {
	Run(ctx context.Context, operation string) <-chan Update
}
