// Package classifier wraps the external intent/extraction capability behind a
// stable contract: bounded prompt in, validated structured result out, with a
// deterministic fallback so the pipeline never blocks on classifier failure.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/waffyhq/waffy-go/internal/config"
	"github.com/waffyhq/waffy-go/internal/extract"
)

// Phase labels whether a message starts, continues, or ends a conversation.
type Phase string

const (
	PhaseNew      Phase = "new"
	PhaseContinue Phase = "continue"
	PhaseClose    Phase = "close"
)

// RejectedCategory is the terminal category assigned by the safety pre-check.
const RejectedCategory = "rejected"

// maxContextLines bounds how much history goes into the prompt.
const maxContextLines = 10

// Result is the classifier's verdict for one message.
type Result struct {
	Category string
	Priority string
	Phase    Phase
	Fields   extract.Fields

	// Fallback is true when the deterministic default was substituted
	// because the engine failed or returned garbage.
	Fallback bool
	// Rejected is true when the safety pre-check refused the message.
	Rejected bool
}

// Engine is the external generation capability. Implementations must return
// the raw model output; the adapter owns all parsing and validation.
type Engine interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Guard optionally screens messages before classification.
type Guard interface {
	Allow(text string) bool
}

// Adapter validates and normalizes engine output against a business's
// category book.
type Adapter struct {
	engine Engine
	book   config.Book
	guard  Guard
}

// New creates a classifier adapter. guard may be nil.
func New(engine Engine, book config.Book, guard Guard) *Adapter {
	return &Adapter{engine: engine, book: book, guard: guard}
}

// fallbackResult is returned whenever the engine cannot be trusted.
func fallbackResult() Result {
	return Result{
		Category: config.FallbackCategory,
		Priority: "moderate",
		Phase:    PhaseContinue,
		Fallback: true,
	}
}

// Classify runs the message plus its conversation context through the engine
// and returns a validated result. It never returns an error: any failure
// yields the deterministic fallback.
func (a *Adapter) Classify(ctx context.Context, text string, contextTexts []string) Result {
	if a.guard != nil && !a.guard.Allow(text) {
		log.Printf("[Classifier] message rejected by safety pre-check")
		return Result{Category: RejectedCategory, Priority: "low", Phase: PhaseContinue, Rejected: true}
	}

	raw, err := a.engine.Generate(ctx, systemInstruction, a.buildPrompt(text, contextTexts))
	if err != nil {
		log.Printf("[Classifier] engine error: %v", err)
		return fallbackResult()
	}

	parsed, err := parseResponse(raw)
	if err != nil {
		log.Printf("[Classifier] parse failed: %v (raw %.100q)", err, raw)
		return fallbackResult()
	}

	return a.validate(parsed)
}

// rawResult mirrors the JSON shape the engine is asked to produce.
type rawResult struct {
	Category           string         `json:"category"`
	Priority           string         `json:"priority"`
	ConversationStatus string         `json:"conversation_status"`
	ExtractedInfo      map[string]any `json:"extracted_info"`
}

var lineComments = regexp.MustCompile(`//[^\n"]*`)

// parseResponse strips any non-structured wrapping the model added and
// decodes the JSON body.
func parseResponse(raw string) (rawResult, error) {
	content := strings.TrimSpace(raw)

	// Clean markdown code fences
	if strings.HasPrefix(content, "```") {
		lines := strings.SplitN(content, "\n", 2)
		if len(lines) > 1 {
			content = lines[1]
		}
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	// Models sometimes annotate fields with // comments; JSON has none.
	content = lineComments.ReplaceAllString(content, "")

	var parsed rawResult
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return rawResult{}, fmt.Errorf("decode classifier output: %w", err)
	}
	if parsed.Category == "" {
		return rawResult{}, fmt.Errorf("classifier output missing category")
	}
	return parsed, nil
}

// validate maps a parsed result onto the configured category book.
func (a *Adapter) validate(parsed rawResult) Result {
	category := strings.ToLower(strings.TrimSpace(parsed.Category))
	if !a.book.Contains(category) {
		log.Printf("[Classifier] unknown category %q, using %q", category, config.FallbackCategory)
		category = config.FallbackCategory
	}

	priority := strings.ToLower(strings.TrimSpace(parsed.Priority))
	switch priority {
	case "high", "moderate", "low":
	default:
		priority = a.book.Priority(category)
	}

	phase := Phase(strings.ToLower(strings.TrimSpace(parsed.ConversationStatus)))
	switch phase {
	case PhaseNew, PhaseContinue, PhaseClose:
	default:
		phase = PhaseContinue
	}

	return Result{
		Category: category,
		Priority: priority,
		Phase:    phase,
		Fields:   extract.FromRaw(parsed.ExtractedInfo),
	}
}

const systemInstruction = "You are an assistant trained to classify customer chat messages " +
	"into categories for customer support."

// buildPrompt assembles the bounded classification prompt.
func (a *Adapter) buildPrompt(text string, contextTexts []string) string {
	if len(contextTexts) > maxContextLines {
		contextTexts = contextTexts[len(contextTexts)-maxContextLines:]
	}
	contextBlock := "None"
	if len(contextTexts) > 0 {
		var b strings.Builder
		for _, line := range contextTexts {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		contextBlock = strings.TrimRight(b.String(), "\n")
	}

	var categories strings.Builder
	for _, c := range a.book.Categories {
		desc := c.Description
		if desc == "" {
			desc = c.Name + " category"
		}
		fmt.Fprintf(&categories, "- %s: %s (priority: %s)\n", c.Name, desc, a.book.Priority(c.Name))
	}

	return fmt.Sprintf(`You are a smart assistant that processes customer messages sent to a business.

Message:
%q

Context (last messages from this customer):
%s

Your tasks:
- Classify intent into one of the configured categories.
- Assign a priority: high, moderate, low.
- Decide if this message is related to the context.
- Return conversation_status: "new", "continue", or "close".
- Extract structured details the message actually mentions.

Categories to choose from:
%s
Use these keys for extracted_info where applicable:
- items: list of ordered items, each with item, quantity, unit, notes
- delivery_method: pickup or delivery
- delivery_address: full address string for delivery
- delivery_time: requested delivery time
- pickup_time: pickup time if the customer plans to collect
- notes: custom instructions (e.g. "no nuts", "wrap nicely")
- payment_status: e.g. paid, unpaid, advance required
- issue: description of a problem (e.g. "damaged item")
- request: expected action (e.g. "refund", "replacement")
- appointment_time: booking time for service businesses
- contact_info: phone or email provided for follow-up

Respond with JSON only, like:
{
  "category": "new_order",
  "priority": "moderate",
  "conversation_status": "continue",
  "extracted_info": {
    "items": [{"item": "chocolate cake", "quantity": "2"}],
    "delivery_time": "5 PM"
  }
}`, text, contextBlock, categories.String())
}
