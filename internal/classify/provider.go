package classify

import "context"

// Provider is one concrete backend capable of classifying text. Equivalent
// backends are selectable at configuration time; the Client treats them
// uniformly.
type Provider interface {
	Classify(ctx context.Context, text string) (Result, error)
}
