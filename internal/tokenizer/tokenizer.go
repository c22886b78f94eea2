// Package tokenizer estimates token counts of concatenated file contents.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	Model string
}

const (
	// DefaultModel is used when no model is configured.
	DefaultModel        = "gpt-4o"
	fallbackEncoding    = "cl100k_base"
	missingEncodingText = "tokenizer %s has no encoding"
)

var tiktokenModelPrefixes = []string{"gpt-", "o1", "o3", "text-embedding", "davinci", "curie", "babbage", "ada", "code-"}

// encodingCounter counts tokens with a tiktoken encoding.
type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	label    string
}

func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, fmt.Errorf(missingEncodingText, counter.label)
	}
	return len(counter.encoding.Encode(input, nil, nil)), nil
}

// NewCounter returns a Counter for the requested model together with the
// model name reported in summaries. Models without a known tiktoken encoding
// are counted with cl100k_base and reported under that name.
func NewCounter(cfg Config) (Counter, string, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	lowerModel := strings.ToLower(model)

	if isTiktokenModel(lowerModel) {
		if encoding, err := tiktoken.EncodingForModel(lowerModel); err == nil && encoding != nil {
			return encodingCounter{encoding: encoding, label: lowerModel}, model, nil
		}
	}
	encoding, err := tiktoken.GetEncoding(fallbackEncoding)
	if err != nil {
		return nil, "", fmt.Errorf("initialize %s tokenizer: %w", fallbackEncoding, err)
	}
	if encoding == nil {
		return nil, "", errors.New("tiktoken returned no encoding")
	}
	return encodingCounter{encoding: encoding, label: fallbackEncoding}, fallbackEncoding, nil
}

func isTiktokenModel(model string) bool {
	for _, prefix := range tiktokenModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
