// Package llm classifies raw receipt product names into canonical
// products using a language model. The providers differ only in
// transport; every one of them returns the same labeled-line payload
// that parser.go understands.
package llm

import (
	"context"
)

// Client defines the interface for language model providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// systemPrompt is shared by every provider.
const systemPrompt = "You are a grocery product classifier. " +
	"Respond only with the labeled lines in the exact format requested, nothing else."
