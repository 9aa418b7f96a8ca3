package pipeline

import (
	"github.com/waffyhq/waffy-go/internal/bus"
	"github.com/waffyhq/waffy-go/internal/classifier"
	"github.com/waffyhq/waffy-go/internal/extract"
	"github.com/waffyhq/waffy-go/internal/review"
	"github.com/waffyhq/waffy-go/internal/routing"
)

// Stage names one step of a message's journey through the pipeline.
type Stage string

const (
	StageReceived      Stage = "received"
	StageContextLoaded Stage = "context_loaded"
	StageClassified    Stage = "classified"
	StageMerged        Stage = "merged"
	StageRouted        Stage = "routed"
	StageReviewed      Stage = "reviewed"
	StagePersisted     Stage = "persisted"
	StageResponded     Stage = "responded"
	StageDone          Stage = "done"
	StageAborted       Stage = "aborted"
)

// Outcome says how a stage ended. Stages report outcomes instead of
// panicking or erroring: the pipeline always runs to Done or Aborted.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFallback Outcome = "fallback" // degraded result was substituted
	OutcomeSkipped  Outcome = "skipped"  // stage did not apply to this message
	OutcomeAborted  Outcome = "aborted"  // processing stopped here
)

// StageResult is one stage's recorded outcome.
type StageResult struct {
	Stage   Stage
	Outcome Outcome
	Note    string
}

// State carries one message through the pipeline and accumulates every
// stage's product. It is the pipeline's audit record for the turn.
type State struct {
	Msg bus.InboundMessage

	Stage  Stage
	Trace  []StageResult
	Reason string // set when Stage is StageAborted

	ContextTexts   []string
	Classification classifier.Result
	Merged         extract.Fields
	Kind           routing.RecordKind
	Review         review.Decision
	RecordRef      string
	Reply          string
}

// mark records a stage outcome and advances the state.
func (s *State) mark(stage Stage, outcome Outcome, note string) {
	s.Stage = stage
	s.Trace = append(s.Trace, StageResult{Stage: stage, Outcome: outcome, Note: note})
}

// abort stops the pipeline at the current point.
func (s *State) abort(reason string) {
	s.Reason = reason
	s.mark(StageAborted, OutcomeAborted, reason)
}

// Aborted reports whether the message was dropped before completion.
func (s *State) Aborted() bool {
	return s.Stage == StageAborted
}
