package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waffyhq/waffy-go/internal/bus"
	"github.com/waffyhq/waffy-go/internal/classifier"
	"github.com/waffyhq/waffy-go/internal/config"
	"github.com/waffyhq/waffy-go/internal/contextstore"
	"github.com/waffyhq/waffy-go/internal/extract"
	"github.com/waffyhq/waffy-go/internal/ratelimit"
	"github.com/waffyhq/waffy-go/internal/respond"
	"github.com/waffyhq/waffy-go/internal/review"
	"github.com/waffyhq/waffy-go/internal/routing"
	"github.com/waffyhq/waffy-go/internal/store"
)

type fakeClassifier struct {
	result classifier.Result

	gotText    string
	gotContext []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string, contextTexts []string) classifier.Result {
	f.gotText = text
	f.gotContext = contextTexts
	return f.result
}

type fakeGateway struct {
	refs map[string]string // message id -> ref
	err  error

	upserts []store.Record
}

func (f *fakeGateway) UpsertRecord(_ context.Context, _ routing.RecordKind, rec store.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.refs == nil {
		f.refs = make(map[string]string)
	}
	if ref, ok := f.refs[rec.MessageID]; ok {
		return ref, nil
	}
	ref := "ORD-" + rec.MessageID
	f.refs[rec.MessageID] = ref
	f.upserts = append(f.upserts, rec)
	return ref, nil
}

func (f *fakeGateway) MostRecentOrder(context.Context, string) (*store.OpenOrder, error) {
	return nil, nil
}

type fakeSender struct {
	sent []bus.OutboundMessage
}

func (f *fakeSender) Send(msg bus.OutboundMessage) {
	f.sent = append(f.sent, msg)
}

type fixture struct {
	orchestrator *Orchestrator
	classifier   *fakeClassifier
	gateway      *fakeGateway
	sender       *fakeSender
	contexts     contextstore.Store
}

func newFixture(t *testing.T, result classifier.Result) *fixture {
	t.Helper()
	fc := &fakeClassifier{result: result}
	fg := &fakeGateway{}
	fs := &fakeSender{}
	contexts := contextstore.NewMemory(contextstore.DefaultWindow())

	o := New(Options{
		Contexts:   contexts,
		Classifier: fc,
		Router:     routing.New(config.DefaultBook()),
		Reviewer:   review.New(fg, config.ReviewConfig{RecencyMins: 30, CountryPrefix: "91", DomesticDigits: 10}),
		Gateway:    fg,
		Selector:   respond.Selector{AckFiller: true},
		Sender:     fs,
		Limiter:    ratelimit.New(10),
	})
	return &fixture{orchestrator: o, classifier: fc, gateway: fg, sender: fs, contexts: contexts}
}

func orderResult() classifier.Result {
	return classifier.Result{
		Category: "new_order",
		Priority: "high",
		Phase:    classifier.PhaseContinue,
		Fields: extract.Fields{
			Items: []extract.LineItem{{Item: "chocolate cake", Quantity: "2"}},
		},
	}
}

func inbound(id, text string) bus.InboundMessage {
	return bus.InboundMessage{
		MessageID:  id,
		CustomerID: "9876543210",
		BusinessID: "b1",
		Text:       text,
		Timestamp:  time.Now().Unix(),
	}
}

func TestProcess_OrderRunsEveryStage(t *testing.T) {
	f := newFixture(t, orderResult())

	s := f.orchestrator.Process(context.Background(), inbound("wamid.1", "2 chocolate cakes"))

	require.False(t, s.Aborted())
	assert.Equal(t, StageDone, s.Stage)
	assert.Equal(t, routing.KindOrder, s.Kind)
	assert.NotEmpty(t, s.RecordRef)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0].Text, "Order confirmed")
	assert.Equal(t, "wamid.1", f.sender.sent[0].ReplyTo)
}

func TestProcess_StructuralAbort(t *testing.T) {
	f := newFixture(t, orderResult())

	s := f.orchestrator.Process(context.Background(), bus.InboundMessage{MessageID: "wamid.1"})

	assert.True(t, s.Aborted())
	assert.Empty(t, f.gateway.upserts)
	assert.Empty(t, f.sender.sent)
}

func TestProcess_RateLimitAborts(t *testing.T) {
	f := newFixture(t, orderResult())
	f.orchestrator.limiter = ratelimit.New(1)

	first := f.orchestrator.Process(context.Background(), inbound("wamid.1", "hello"))
	second := f.orchestrator.Process(context.Background(), inbound("wamid.2", "hello again"))

	assert.False(t, first.Aborted())
	assert.True(t, second.Aborted())
	assert.Equal(t, "rate limited", second.Reason)
}

func TestProcess_FillerSkipsPersistence(t *testing.T) {
	f := newFixture(t, classifier.Result{
		Category: "greetings", Priority: "low", Phase: classifier.PhaseContinue,
	})

	s := f.orchestrator.Process(context.Background(), inbound("wamid.1", "good morning!"))

	assert.Equal(t, routing.KindNone, s.Kind)
	assert.Empty(t, f.gateway.upserts)
	require.Len(t, f.sender.sent, 1) // AckFiller greets back
}

func TestProcess_FallbackStillPersists(t *testing.T) {
	f := newFixture(t, classifier.Result{
		Category: "others", Priority: "moderate", Phase: classifier.PhaseContinue, Fallback: true,
	})

	s := f.orchestrator.Process(context.Background(), inbound("wamid.1", "do you have cakes?"))

	require.False(t, s.Aborted())
	assert.Equal(t, routing.KindEnquiry, s.Kind)
	require.Len(t, f.gateway.upserts, 1)

	var classified StageResult
	for _, r := range s.Trace {
		if r.Stage == StageClassified {
			classified = r
		}
	}
	assert.Equal(t, OutcomeFallback, classified.Outcome)
}

func TestProcess_PersistFailureAborts(t *testing.T) {
	f := newFixture(t, orderResult())
	f.gateway.err = errors.New("disk full")

	s := f.orchestrator.Process(context.Background(), inbound("wamid.1", "2 cakes"))

	assert.True(t, s.Aborted())
	assert.Equal(t, "persistence failed", s.Reason)
	assert.Empty(t, f.sender.sent)
}

func TestProcess_ContextAccumulatesAcrossTurns(t *testing.T) {
	f := newFixture(t, orderResult())

	f.orchestrator.Process(context.Background(), inbound("wamid.1", "first message"))
	f.orchestrator.Process(context.Background(), inbound("wamid.2", "second message"))

	assert.Equal(t, []string{"first message"}, f.classifier.gotContext)
}

func TestProcess_CloseClearsContext(t *testing.T) {
	f := newFixture(t, orderResult())
	f.orchestrator.Process(context.Background(), inbound("wamid.1", "first message"))

	f.classifier.result.Phase = classifier.PhaseClose
	f.orchestrator.Process(context.Background(), inbound("wamid.2", "that's all, thanks"))

	f.classifier.result.Phase = classifier.PhaseContinue
	f.orchestrator.Process(context.Background(), inbound("wamid.3", "new conversation"))

	assert.Empty(t, f.classifier.gotContext, "closed conversation leaves no context behind")
}

func TestProcess_MergeAccumulatesFields(t *testing.T) {
	f := newFixture(t, orderResult())
	f.orchestrator.Process(context.Background(), inbound("wamid.1", "2 chocolate cakes"))

	followUp := orderResult()
	followUp.Fields = extract.Fields{Items: []extract.LineItem{{Item: "cupcakes", Quantity: "6"}}}
	f.classifier.result = followUp

	s := f.orchestrator.Process(context.Background(), inbound("wamid.2", "also 6 cupcakes"))

	require.Len(t, s.Merged.Items, 2)
	assert.Equal(t, "chocolate cake", s.Merged.Items[0].Item)
	assert.Equal(t, "cupcakes", s.Merged.Items[1].Item)
}

func TestProcess_NewPhaseDropsAccumulatedFields(t *testing.T) {
	f := newFixture(t, orderResult())
	f.orchestrator.Process(context.Background(), inbound("wamid.1", "2 chocolate cakes"))

	restart := orderResult()
	restart.Phase = classifier.PhaseNew
	restart.Fields = extract.Fields{Items: []extract.LineItem{{Item: "brownies", Quantity: "4"}}}
	f.classifier.result = restart

	s := f.orchestrator.Process(context.Background(), inbound("wamid.2", "fresh order: 4 brownies"))

	require.Len(t, s.Merged.Items, 1)
	assert.Equal(t, "brownies", s.Merged.Items[0].Item)

	// The context window restarts at the new-phase message too.
	f.classifier.result = orderResult()
	f.orchestrator.Process(context.Background(), inbound("wamid.3", "with delivery please"))
	assert.Equal(t, []string{"fresh order: 4 brownies"}, f.classifier.gotContext)
}

// Runs the pipeline against the real gateway and reviewer with a
// domestic-shaped customer id: the follow-up must find the first order under
// the canonical id and extend it instead of opening a second one.
func TestProcess_ConsolidatesAcrossTurnsWithDomesticID(t *testing.T) {
	gateway, err := store.NewSqlite(filepath.Join(t.TempDir(), "waffy.db"))
	require.NoError(t, err)
	defer gateway.Close()

	reviewCfg := config.ReviewConfig{RecencyMins: 30, CountryPrefix: "91", DomesticDigits: 10}
	fc := &fakeClassifier{result: orderResult()}
	o := New(Options{
		Contexts:   contextstore.NewMemory(contextstore.DefaultWindow()),
		Classifier: fc,
		Router:     routing.New(config.DefaultBook()),
		Reviewer:   review.New(gateway, reviewCfg),
		Gateway:    gateway,
		Selector:   respond.Selector{},
		Sender:     &fakeSender{},
		Canonicalize: func(id string) string {
			return review.NormalizePhone(id, reviewCfg.CountryPrefix, reviewCfg.DomesticDigits)
		},
	})

	first := o.Process(context.Background(), inbound("wamid.1", "2 chocolate cakes"))
	require.False(t, first.Aborted())
	require.NotEmpty(t, first.RecordRef)

	followUp := orderResult()
	followUp.Fields = extract.Fields{Items: []extract.LineItem{{Item: "cupcakes", Quantity: "6"}}}
	fc.result = followUp

	second := o.Process(context.Background(), inbound("wamid.2", "also add 6 cupcakes"))
	require.False(t, second.Aborted())

	assert.True(t, second.Review.Consolidate)
	assert.Equal(t, first.RecordRef, second.RecordRef)

	// Orders are stored under the canonical id the reviewer's lookup uses.
	open, err := gateway.MostRecentOrder(context.Background(), "919876543210")
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, first.RecordRef, open.OrderNumber)
}

func TestProcess_RejectedMessageGetsRefusalOnly(t *testing.T) {
	f := newFixture(t, classifier.Result{
		Category: classifier.RejectedCategory, Priority: "low",
		Phase: classifier.PhaseContinue, Rejected: true,
	})

	s := f.orchestrator.Process(context.Background(), inbound("wamid.1", "something unsafe"))

	assert.Equal(t, routing.KindNone, s.Kind)
	assert.Empty(t, f.gateway.upserts)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.sender.sent[0].Text, "can't help")
}
