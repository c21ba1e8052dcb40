package config

import (
	"os"
	"strconv"
	"strings"

	"ragkb"
)

const (
	SearchResultsPlaceholder = "$search_results$"
	UserInputPlaceholder     = "$user_input$"
)

// DefaultPromptTemplate is sent to the knowledge base when PROMPT_TEMPLATE is unset.
// The service substitutes both placeholders server side.
const DefaultPromptTemplate = "You are a helpful assistant. Use the following retrieved content to answer the user's question.\n\n" +
	SearchResultsPlaceholder + "\n\n" +
	"User Question: " + UserInputPlaceholder + "\n" +
	"Answer:"

const DefaultAllowedOrigin = "https://main.d21wh3yl4q77z.amplifyapp.com"

// MaxNumberOfResults is the largest result count a knowledge base vector search accepts.
const MaxNumberOfResults = 100

// Config is read once at process start and handed to the provider clients.
type Config struct {
	Region          string
	KnowledgeBaseID string
	ModelArn        string
	PromptTemplate  string
	AllowedOrigin   string
	StreamAnswer    bool
	NumberOfResults int
	LogLevel        string

	// Local knowledge base, used instead of Bedrock knowledge bases when set
	LocalDBPath      string
	PostgresURL      string
	ContentSeparator string
}

// Load reads the configuration from the environment.
// Missing knowledge base or model identifiers are not an error here,
// the provider call fails instead.
func Load() Config {
	log := ragkb.Logger
	cfg := Config{
		Region:           os.Getenv("AWS_REGION"),
		KnowledgeBaseID:  os.Getenv("KNOWLEDGE_BASE_ID"),
		ModelArn:         os.Getenv("MODEL_ARN"),
		PromptTemplate:   getenv("PROMPT_TEMPLATE", DefaultPromptTemplate),
		AllowedOrigin:    getenv("ALLOWED_ORIGIN", DefaultAllowedOrigin),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		LocalDBPath:      os.Getenv("LOCAL_DB"),
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		ContentSeparator: getenv("CONTENT_SEPARATOR", "document"),
	}
	if v := os.Getenv("STREAM_ANSWER"); v != "" {
		stream, err := strconv.ParseBool(v)
		if err != nil {
			log.Warn("Ignoring STREAM_ANSWER", "value", v, "error", err)
		}
		cfg.StreamAnswer = stream
	}
	if v := os.Getenv("NUMBER_OF_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		switch {
		case err != nil || n < 0:
			log.Warn("Ignoring NUMBER_OF_RESULTS", "value", v)
		case n > MaxNumberOfResults:
			log.Warn("Clamping NUMBER_OF_RESULTS", "value", v, "max", MaxNumberOfResults)
			cfg.NumberOfResults = MaxNumberOfResults
		default:
			cfg.NumberOfResults = n
		}
	}
	return cfg
}

// Local reports whether the local knowledge base should answer instead of Bedrock.
func (c Config) Local() bool {
	return c.LocalDBPath != "" || c.PostgresURL != ""
}

// ValidateTemplate reports whether the template carries both placeholders.
func ValidateTemplate(template string) bool {
	return strings.Contains(template, SearchResultsPlaceholder) &&
		strings.Contains(template, UserInputPlaceholder)
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}
