// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level waffy configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Classifier ClassifierConfig `json:"classifier"`
	Context    ContextConfig    `json:"context"`
	Store      StoreConfig      `json:"store"`
	Redis      RedisConfig      `json:"redis"`
	Review     ReviewConfig     `json:"review"`
	RateLimit  RateLimitConfig  `json:"rateLimit"`
	Respond    RespondConfig    `json:"respond"`
	Events     EventsConfig     `json:"events"`

	// CategoryBook is the path to the per-business category book (YAML).
	// Empty means the built-in default book.
	CategoryBook string `json:"categoryBook,omitempty"`
}

// ClassifierConfig holds LLM classifier settings.
type ClassifierConfig struct {
	Provider    string  `json:"provider,omitempty"` // openai | ollama
	Model       string  `json:"model,omitempty"`
	APIKey      string  `json:"apiKey,omitempty"`
	BaseURL     string  `json:"baseUrl,omitempty"` // ollama server or openai-compatible endpoint
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	TimeoutSecs int     `json:"timeoutSecs,omitempty"`
	SafetyCheck bool    `json:"safetyCheck,omitempty"`
}

// ContextConfig holds conversation window settings.
type ContextConfig struct {
	Capacity    int `json:"capacity,omitempty"`    // max entries returned per read
	HorizonMins int `json:"horizonMins,omitempty"` // max age relative to the current message
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	Path string `json:"path,omitempty"` // sqlite database file
}

// RedisConfig holds optional Redis connection settings for the context store.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// ReviewConfig holds order consolidation settings.
type ReviewConfig struct {
	RecencyMins        int    `json:"recencyMins,omitempty"`
	CountryPrefix      string `json:"countryPrefix,omitempty"`      // default country code for domestic-length numbers
	DomesticDigits     int    `json:"domesticDigits,omitempty"`     // digit count that marks a number as domestic
	RequireBothSignals bool   `json:"requireBothSignals,omitempty"` // AND the keyword and recency signals instead of OR
}

// RateLimitConfig holds the per-customer throttling hint.
type RateLimitConfig struct {
	PerMinute int `json:"perMinute,omitempty"`
}

// RespondConfig holds response selection settings.
type RespondConfig struct {
	AckFiller bool `json:"ackFiller"` // acknowledge greetings/thanks with a generic reply
}

// EventsConfig holds RabbitMQ record-event settings. Empty URL disables publishing.
type EventsConfig struct {
	URL      string `json:"url,omitempty"`
	Exchange string `json:"exchange,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Classifier: ClassifierConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.4,
			MaxTokens:   300,
			TimeoutSecs: 20,
		},
		Context: ContextConfig{
			Capacity:    5,
			HorizonMins: 15,
		},
		Store: StoreConfig{
			Path: "waffy.db",
		},
		Review: ReviewConfig{
			RecencyMins:    30,
			CountryPrefix:  "91",
			DomesticDigits: 10,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 10,
		},
		Respond: RespondConfig{
			AckFiller: true,
		},
		Events: EventsConfig{
			Exchange: "waffy.records",
		},
	}
}
