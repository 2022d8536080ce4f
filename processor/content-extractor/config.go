package contentextractor

import (
	"fmt"
	"time"
)

// Parser modes.
const (
	ParserLlamaParse = "llamaparse"
	ParserLocal      = "local"
)

// Config holds configuration for the content extractor.
type Config struct {
	// Parser selects the hosted parsing service or the local parsers.
	Parser string `json:"parser" yaml:"parser"`

	// LlamaParseURL overrides the hosted parsing API base URL.
	LlamaParseURL string `json:"llamaparse_url,omitempty" yaml:"llamaparse_url,omitempty"`

	// Language is the parsing language hint.
	Language string `json:"language" yaml:"language"`

	// ResultType is "text" or "markdown".
	ResultType string `json:"result_type" yaml:"result_type"`

	// NumWorkers bounds concurrent documents in ExtractAll.
	NumWorkers int `json:"num_workers" yaml:"num_workers"`

	// PollInterval is the delay between parsing job status checks.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// Timeout bounds one document, including download and parsing.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// DropSegments lists zero-based segment indices to discard.
	DropSegments []int `json:"drop_segments" yaml:"drop_segments"`

	// Noise lists literal strings removed wherever they occur.
	Noise []string `json:"noise" yaml:"noise"`

	// NoiseReplacement is substituted for each noise occurrence.
	NoiseReplacement string `json:"noise_replacement" yaml:"noise_replacement"`

	// RawTextFile receives the cleaned text. Empty skips the write.
	RawTextFile string `json:"raw_text_file,omitempty" yaml:"raw_text_file,omitempty"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Parser:           ParserLlamaParse,
		Language:         "en",
		ResultType:       "text",
		NumWorkers:       4,
		PollInterval:     2 * time.Second,
		Timeout:          10 * time.Minute,
		DropSegments:     []int{4},
		NoiseReplacement: " ",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Parser {
	case ParserLlamaParse, ParserLocal:
	default:
		return fmt.Errorf("parser must be %q or %q, got %q", ParserLlamaParse, ParserLocal, c.Parser)
	}
	switch c.ResultType {
	case "", "text", "markdown":
	default:
		return fmt.Errorf("result_type must be text or markdown, got %q", c.ResultType)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("num_workers must be at least 1")
	}
	for _, idx := range c.DropSegments {
		if idx < 0 {
			return fmt.Errorf("drop_segments must not contain negative indices, got %d", idx)
		}
	}
	return nil
}
