package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waffyhq/waffy-go/internal/config"
)

// stubEngine returns a canned response or error.
type stubEngine struct {
	response string
	err      error
	prompt   string
}

func (s *stubEngine) Generate(_ context.Context, _, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func newAdapter(e Engine) *Adapter {
	return New(e, config.DefaultBook(), nil)
}

func TestClassify_ParsesCleanJSON(t *testing.T) {
	engine := &stubEngine{response: `{
		"category": "new_order",
		"priority": "high",
		"conversation_status": "continue",
		"extracted_info": {
			"items": [{"item": "chocolate cake", "quantity": "2"}],
			"delivery_time": "5 PM"
		}
	}`}

	res := newAdapter(engine).Classify(context.Background(), "2 chocolate cakes for 5pm", nil)
	assert.Equal(t, "new_order", res.Category)
	assert.Equal(t, "high", res.Priority)
	assert.Equal(t, PhaseContinue, res.Phase)
	assert.False(t, res.Fallback)
	require.Len(t, res.Fields.Items, 1)
	assert.Equal(t, "chocolate cake", res.Fields.Items[0].Item)
	assert.Equal(t, "5 PM", res.Fields.Scalar("delivery_time"))
}

func TestClassify_StripsMarkdownFences(t *testing.T) {
	engine := &stubEngine{response: "```json\n" +
		`{"category": "complaint", "priority": "high", "conversation_status": "new", "extracted_info": {}}` +
		"\n```"}

	res := newAdapter(engine).Classify(context.Background(), "my cake arrived damaged", nil)
	assert.Equal(t, "complaint", res.Category)
	assert.Equal(t, PhaseNew, res.Phase)
}

func TestClassify_StripsLineComments(t *testing.T) {
	engine := &stubEngine{response: `{
		"category": "feedback",
		"priority": "low",
		"conversation_status": "close",  // conversation wrapped up
		"extracted_info": {}
	}`}

	res := newAdapter(engine).Classify(context.Background(), "great service, thanks!", nil)
	assert.Equal(t, "feedback", res.Category)
	assert.Equal(t, PhaseClose, res.Phase)
}

func TestClassify_UnknownCategoryFallsBackToOthers(t *testing.T) {
	engine := &stubEngine{response: `{"category": "wizardry", "priority": "high", "conversation_status": "continue", "extracted_info": {}}`}

	res := newAdapter(engine).Classify(context.Background(), "abracadabra", nil)
	assert.Equal(t, config.FallbackCategory, res.Category)
	assert.False(t, res.Fallback) // validated substitution, not an engine failure
}

func TestClassify_EngineErrorYieldsDeterministicFallback(t *testing.T) {
	engine := &stubEngine{err: errors.New("connection refused")}

	res := newAdapter(engine).Classify(context.Background(), "hello", nil)
	assert.Equal(t, config.FallbackCategory, res.Category)
	assert.Equal(t, "moderate", res.Priority)
	assert.Equal(t, PhaseContinue, res.Phase)
	assert.True(t, res.Fields.Empty())
	assert.True(t, res.Fallback)
}

func TestClassify_GarbageOutputYieldsFallback(t *testing.T) {
	engine := &stubEngine{response: "I think this is probably an order?"}

	res := newAdapter(engine).Classify(context.Background(), "hello", nil)
	assert.True(t, res.Fallback)
	assert.Equal(t, config.FallbackCategory, res.Category)
}

func TestClassify_MissingStatusDefaultsToContinue(t *testing.T) {
	engine := &stubEngine{response: `{"category": "general_inquiry", "priority": "moderate", "extracted_info": {}}`}

	res := newAdapter(engine).Classify(context.Background(), "what are your hours?", nil)
	assert.Equal(t, PhaseContinue, res.Phase)
}

func TestClassify_InvalidPriorityUsesBookDefault(t *testing.T) {
	engine := &stubEngine{response: `{"category": "complaint", "priority": "urgent!!", "conversation_status": "continue", "extracted_info": {}}`}

	res := newAdapter(engine).Classify(context.Background(), "this is broken", nil)
	assert.Equal(t, "high", res.Priority) // complaint is high in the default book
}

func TestClassify_PromptBoundedToLastTenContextLines(t *testing.T) {
	engine := &stubEngine{response: `{"category": "others", "priority": "low", "conversation_status": "continue", "extracted_info": {}}`}
	adapter := newAdapter(engine)

	contextTexts := make([]string, 0, 15)
	for i := 0; i < 15; i++ {
		contextTexts = append(contextTexts, "line")
	}
	contextTexts[0] = "dropped-line"
	contextTexts[14] = "kept-line"

	adapter.Classify(context.Background(), "hi", contextTexts)
	assert.Contains(t, engine.prompt, "kept-line")
	assert.NotContains(t, engine.prompt, "dropped-line")
}

func TestClassify_GuardRejects(t *testing.T) {
	engine := &stubEngine{response: `{"category": "new_order"}`}
	adapter := New(engine, config.DefaultBook(), NewKeywordGuard([]string{"forbidden"}))

	res := adapter.Classify(context.Background(), "something forbidden here", nil)
	assert.True(t, res.Rejected)
	assert.Equal(t, RejectedCategory, res.Category)
	assert.Empty(t, engine.prompt) // no classification attempted
}
