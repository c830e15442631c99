package llm

import "context"

// Completer sends one system/user prompt pair to a model and returns the text
// of its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Ping(ctx context.Context) error
}
