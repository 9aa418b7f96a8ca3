package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FallbackCategory is substituted whenever the classifier returns a category
// the business has not configured.
const FallbackCategory = "others"

// Category is one configured intent label for a business.
type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Priority    string `yaml:"priority,omitempty"` // high | moderate | low
	Kind        string `yaml:"kind,omitempty"`     // order | issue | enquiry | feedback | none
}

// Book is the per-business category configuration consulted by the classifier
// and the category router. Read-only for the duration of a pipeline run.
type Book struct {
	BusinessType string     `yaml:"business_type,omitempty"`
	Categories   []Category `yaml:"categories"`
}

// Names returns the configured category names in order.
func (b Book) Names() []string {
	names := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Contains reports whether name is a configured category.
func (b Book) Contains(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range b.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Priority returns the configured priority for a category, "moderate" when unset.
func (b Book) Priority(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range b.Categories {
		if c.Name == name && c.Priority != "" {
			return c.Priority
		}
	}
	return "moderate"
}

// Kind returns the configured record kind for a category, "" when unset.
func (b Book) Kind(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, c := range b.Categories {
		if c.Name == name {
			return c.Kind
		}
	}
	return ""
}

// LoadBook reads a category book from a YAML file. An empty path returns the
// default book. The fallback category is always present after loading.
func LoadBook(path string) (Book, error) {
	if path == "" {
		return DefaultBook(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Book{}, fmt.Errorf("read category book: %w", err)
	}

	var book Book
	if err := yaml.Unmarshal(data, &book); err != nil {
		return Book{}, fmt.Errorf("parse category book: %w", err)
	}
	for i, c := range book.Categories {
		book.Categories[i].Name = strings.ToLower(strings.TrimSpace(c.Name))
	}
	if !book.Contains(FallbackCategory) {
		book.Categories = append(book.Categories, Category{Name: FallbackCategory, Priority: "low"})
	}
	return book, nil
}

// DefaultBook returns the built-in category book shared by all business types.
func DefaultBook() Book {
	return Book{
		Categories: []Category{
			{Name: "new_order", Description: "Customer shows clear intent to purchase something.", Priority: "high", Kind: "order"},
			{Name: "order_status", Description: "Asks about delivery, tracking, or the progress of an existing order.", Priority: "moderate", Kind: "order"},
			{Name: "general_inquiry", Description: "Questions about products, pricing, store hours, or policies.", Priority: "moderate", Kind: "enquiry"},
			{Name: "complaint", Description: "Expressions of dissatisfaction or reports of a bad experience.", Priority: "high", Kind: "issue"},
			{Name: "return_refund", Description: "Clear requests for returns, refunds, or exchanges.", Priority: "high", Kind: "issue"},
			{Name: "follow_up", Description: "Refers to a previous conversation or nudges for a reply.", Priority: "moderate", Kind: "issue"},
			{Name: "feedback", Description: "Reviews, suggestions, compliments, or general opinions.", Priority: "low", Kind: "feedback"},
			{Name: "greetings", Description: "Hellos, thanks, and other small talk.", Priority: "low", Kind: "none"},
			{Name: FallbackCategory, Description: "Anything that doesn't fit above.", Priority: "low"},
		},
	}
}

// SuggestedByType lists extra categories worth enabling per business type.
var SuggestedByType = map[string][]Category{
	"bakery": {
		{Name: "pickup_time", Priority: "high"},
		{Name: "customization_request", Priority: "high"},
		{Name: "dietary_preference", Priority: "high"},
	},
	"clinic": {
		{Name: "appointment_booking", Priority: "high"},
		{Name: "reschedule_appointment", Priority: "high"},
		{Name: "symptoms", Priority: "moderate"},
		{Name: "insurance_query", Priority: "low"},
	},
	"electronics": {
		{Name: "product_issue", Priority: "moderate", Kind: "issue"},
		{Name: "technical_support", Priority: "high", Kind: "issue"},
		{Name: "warranty_claim", Priority: "moderate", Kind: "issue"},
	},
	"stationery": {
		{Name: "bulk_order_request", Priority: "high", Kind: "order"},
		{Name: "product_availability", Priority: "moderate"},
		{Name: "delivery_time_query", Priority: "moderate"},
	},
	"tiffin_service": {
		{Name: "new_subscription", Priority: "high", Kind: "order"},
		{Name: "pause_service", Priority: "moderate"},
		{Name: "meal_customization", Priority: "moderate"},
		{Name: "address_update", Priority: "moderate"},
		{Name: "delivery_issue", Priority: "high", Kind: "issue"},
		{Name: "billing_query", Priority: "moderate"},
	},
	"salon": {
		{Name: "appointment_booking", Priority: "high"},
		{Name: "stylist_request", Priority: "moderate"},
		{Name: "package_inquiry", Priority: "moderate"},
		{Name: "service_feedback", Priority: "low", Kind: "feedback"},
	},
	"fitness_center": {
		{Name: "membership_inquiry", Priority: "moderate"},
		{Name: "class_schedule", Priority: "moderate"},
		{Name: "trainer_availability", Priority: "moderate"},
		{Name: "payment_query", Priority: "moderate"},
	},
}

// BookForType returns the default book extended with the suggestions for a
// business type. Unknown types get the plain default book.
func BookForType(businessType string) Book {
	book := DefaultBook()
	book.BusinessType = businessType
	for _, extra := range SuggestedByType[businessType] {
		if !book.Contains(extra.Name) {
			book.Categories = append(book.Categories, extra)
		}
	}
	return book
}
