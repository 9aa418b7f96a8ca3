// Package pipeline orchestrates a message's full journey: context load,
// classification, merge, routing, review, persistence, and response. Each
// stage records an explicit outcome; a failed enrichment degrades the turn
// instead of dropping the message.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/waffyhq/waffy-go/internal/bus"
	"github.com/waffyhq/waffy-go/internal/classifier"
	"github.com/waffyhq/waffy-go/internal/contextstore"
	"github.com/waffyhq/waffy-go/internal/delivery"
	"github.com/waffyhq/waffy-go/internal/events"
	"github.com/waffyhq/waffy-go/internal/extract"
	"github.com/waffyhq/waffy-go/internal/ratelimit"
	"github.com/waffyhq/waffy-go/internal/respond"
	"github.com/waffyhq/waffy-go/internal/review"
	"github.com/waffyhq/waffy-go/internal/routing"
	"github.com/waffyhq/waffy-go/internal/store"
)

// Classifier is the classification capability the pipeline depends on.
type Classifier interface {
	Classify(ctx context.Context, text string, contextTexts []string) classifier.Result
}

// Reviewer decides order consolidation.
type Reviewer interface {
	Review(ctx context.Context, customerID, text string, sentAt int64, fields extract.Fields) review.Decision
}

// Orchestrator runs the conversation pipeline. One instance serves all
// conversations; per-conversation ordering is the caller's concern (see the
// lane package).
type Orchestrator struct {
	contexts   contextstore.Store
	classifier Classifier
	router     *routing.Router
	reviewer   Reviewer
	gateway    store.Gateway
	selector   respond.Selector
	sender     delivery.Sender
	limiter    *ratelimit.Limiter
	publisher  *events.Publisher

	canonicalize    func(string) string
	classifyTimeout time.Duration

	// Conversation-scoped working state: the extraction accumulated across
	// turns, and the phase the previous turn ended with.
	mu        sync.Mutex
	pending   map[string]extract.Fields
	lastPhase map[string]classifier.Phase
}

// Options wires an Orchestrator.
type Options struct {
	Contexts        contextstore.Store
	Classifier      Classifier
	Router          *routing.Router
	Reviewer        Reviewer
	Gateway         store.Gateway
	Selector        respond.Selector
	Sender          delivery.Sender
	Limiter         *ratelimit.Limiter
	Publisher       *events.Publisher // may be nil
	ClassifyTimeout time.Duration

	// Canonicalize rewrites the inbound customer id to its canonical form
	// before any stage runs, so the rate limiter, context keys, reviewer
	// lookup, and gateway writes all share one key. Nil keeps ids as-is.
	Canonicalize func(customerID string) string
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.ClassifyTimeout <= 0 {
		opts.ClassifyTimeout = 20 * time.Second
	}
	return &Orchestrator{
		contexts:        opts.Contexts,
		classifier:      opts.Classifier,
		router:          opts.Router,
		reviewer:        opts.Reviewer,
		gateway:         opts.Gateway,
		selector:        opts.Selector,
		sender:          opts.Sender,
		limiter:         opts.Limiter,
		publisher:       opts.Publisher,
		canonicalize:    opts.Canonicalize,
		classifyTimeout: opts.ClassifyTimeout,
		pending:         make(map[string]extract.Fields),
		lastPhase:       make(map[string]classifier.Phase),
	}
}

// Process runs one message through every stage and returns the final state.
// It never returns an error: failures are recorded as stage outcomes.
func (o *Orchestrator) Process(ctx context.Context, msg bus.InboundMessage) *State {
	s := &State{Msg: msg}

	if msg.MessageID == "" || msg.CustomerID == "" || msg.Text == "" {
		s.abort("missing message id, customer, or text")
		return s
	}
	if o.canonicalize != nil {
		msg.CustomerID = o.canonicalize(msg.CustomerID)
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	s.Msg = msg
	if o.limiter != nil && !o.limiter.Allow(msg.CustomerID, time.Unix(msg.Timestamp, 0)) {
		log.Printf("[Pipeline] rate limited customer %s, dropping %s", msg.CustomerID, msg.MessageID)
		s.abort("rate limited")
		return s
	}
	s.mark(StageReceived, OutcomeOK, "")

	key := msg.ConversationKey()

	// A conversation the previous turn closed starts clean.
	if o.lastPhaseFor(key) == classifier.PhaseClose {
		o.contexts.Clear(ctx, msg.CustomerID, msg.BusinessID)
		o.resetPending(key)
	}

	s.ContextTexts = o.contexts.Get(ctx, msg.CustomerID, msg.BusinessID, msg.Timestamp)
	s.mark(StageContextLoaded, OutcomeOK, "")

	o.classify(ctx, s)
	o.merge(s, key)
	o.route(s)
	o.reviewOrder(ctx, s)
	o.persist(ctx, s)
	if s.Aborted() {
		return s
	}
	o.reply(s)

	o.closeTurn(ctx, s, key)
	s.mark(StageDone, OutcomeOK, "")
	return s
}

func (o *Orchestrator) classify(ctx context.Context, s *State) {
	cctx, cancel := context.WithTimeout(ctx, o.classifyTimeout)
	defer cancel()

	s.Classification = o.classifier.Classify(cctx, s.Msg.Text, s.ContextTexts)
	switch {
	case s.Classification.Rejected:
		s.mark(StageClassified, OutcomeOK, "rejected by safety pre-check")
	case s.Classification.Fallback:
		s.mark(StageClassified, OutcomeFallback, "deterministic fallback")
	default:
		s.mark(StageClassified, OutcomeOK, s.Classification.Category)
	}
}

func (o *Orchestrator) merge(s *State, key string) {
	if s.Classification.Rejected {
		s.mark(StageMerged, OutcomeSkipped, "rejected message carries no extraction")
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// A new conversation phase discards what earlier turns accumulated.
	if s.Classification.Phase == classifier.PhaseNew {
		delete(o.pending, key)
	}
	s.Merged = extract.Merge(o.pending[key], s.Classification.Fields)
	o.pending[key] = s.Merged
	s.mark(StageMerged, OutcomeOK, "")
}

func (o *Orchestrator) route(s *State) {
	s.Kind = o.router.Route(s.Classification.Category)
	if s.Kind == routing.KindNone {
		s.mark(StageRouted, OutcomeSkipped, "filler, nothing to persist")
		return
	}
	s.mark(StageRouted, OutcomeOK, string(s.Kind))
}

func (o *Orchestrator) reviewOrder(ctx context.Context, s *State) {
	if s.Kind != routing.KindOrder || o.reviewer == nil {
		s.mark(StageReviewed, OutcomeSkipped, "")
		return
	}

	s.Review = o.reviewer.Review(ctx, s.Msg.CustomerID, s.Msg.Text, s.Msg.Timestamp, s.Merged)
	s.Merged = s.Review.Fields
	if s.Review.Consolidate {
		s.mark(StageReviewed, OutcomeOK, "consolidating into "+s.Review.OrderNumber)
		return
	}
	s.mark(StageReviewed, OutcomeOK, s.Review.Reason)
}

func (o *Orchestrator) persist(ctx context.Context, s *State) {
	if s.Kind == routing.KindNone {
		s.mark(StagePersisted, OutcomeSkipped, "")
		return
	}

	ref, err := o.gateway.UpsertRecord(ctx, s.Kind, store.Record{
		MessageID:       s.Msg.MessageID,
		CustomerID:      s.Msg.CustomerID,
		CustomerName:    s.Msg.CustomerName,
		BusinessID:      s.Msg.BusinessID,
		Text:            s.Msg.Text,
		Category:        s.Classification.Category,
		Priority:        s.Classification.Priority,
		Timestamp:       s.Msg.Timestamp,
		Fields:          s.Merged,
		ConsolidateInto: s.Review.OrderNumber,
	})
	if err != nil {
		log.Printf("[Pipeline] persist %s failed: %v", s.Msg.MessageID, err)
		s.abort("persistence failed")
		return
	}
	s.RecordRef = ref
	s.mark(StagePersisted, OutcomeOK, ref)

	o.publisher.Publish(ctx, events.RecordEvent{
		Kind:       string(s.Kind),
		RecordRef:  ref,
		MessageID:  s.Msg.MessageID,
		CustomerID: s.Msg.CustomerID,
		BusinessID: s.Msg.BusinessID,
		Category:   s.Classification.Category,
		Priority:   s.Classification.Priority,
		OccurredAt: s.Msg.Timestamp,
	})
}

func (o *Orchestrator) reply(s *State) {
	s.Reply = o.selector.Select(respond.Reply{
		Kind:         s.Kind,
		Priority:     s.Classification.Priority,
		Fields:       s.Merged,
		RecordRef:    s.RecordRef,
		Consolidated: s.Review.Consolidate,
		Rejected:     s.Classification.Rejected,
	})
	if s.Reply == "" {
		s.mark(StageResponded, OutcomeSkipped, "no reply for this turn")
		return
	}
	o.sender.Send(bus.OutboundMessage{
		CustomerID: s.Msg.CustomerID,
		BusinessID: s.Msg.BusinessID,
		Text:       s.Reply,
		ReplyTo:    s.Msg.MessageID,
	})
	s.mark(StageResponded, OutcomeOK, "")
}

// closeTurn records the turn into the context window and applies the
// conversation phase the classifier decided. A new phase restarts the window
// at this message; a close phase wipes it.
func (o *Orchestrator) closeTurn(ctx context.Context, s *State, key string) {
	switch s.Classification.Phase {
	case classifier.PhaseClose:
		o.contexts.Clear(ctx, s.Msg.CustomerID, s.Msg.BusinessID)
		o.resetPending(key)
	case classifier.PhaseNew:
		o.contexts.Clear(ctx, s.Msg.CustomerID, s.Msg.BusinessID)
		o.contexts.Record(ctx, s.Msg.CustomerID, s.Msg.BusinessID, s.Msg.Text, s.Msg.Timestamp)
	default:
		o.contexts.Record(ctx, s.Msg.CustomerID, s.Msg.BusinessID, s.Msg.Text, s.Msg.Timestamp)
	}

	o.mu.Lock()
	o.lastPhase[key] = s.Classification.Phase
	o.mu.Unlock()
}

func (o *Orchestrator) lastPhaseFor(key string) classifier.Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastPhase[key]
}

func (o *Orchestrator) resetPending(key string) {
	o.mu.Lock()
	delete(o.pending, key)
	o.mu.Unlock()
}
