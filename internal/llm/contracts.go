package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request.
type Request struct {
	System        string
	User          string
	Temperature   float32
	MaxTokens     int  // output token budget
	ContextWindow int  // 0 keeps the provider default
	JSON          bool // ask the provider to constrain output to a JSON object
}

// Messages renders the request as system and user turns.
func (r Request) Messages() []Message {
	msgs := make([]Message, 0, 2)
	if r.System != "" {
		msgs = append(msgs, Message{Role: "system", Content: r.System})
	}
	return append(msgs, Message{Role: "user", Content: r.User})
}

// Completer is the language-model capability the pipeline depends on.
// Transport failures are returned wrapped in common.ErrTransport.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
