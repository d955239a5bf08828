package llm

import "context"

// LanguageModel is implemented by provider adapters.
//
// Implementations must be safe for concurrent use; each call owns its own
// translation state.
type LanguageModel interface {
	// Provider returns the provider name, e.g. "openclaw".
	Provider() string

	// ModelID returns the vendor model identifier.
	ModelID() string

	// DoGenerate performs a non-streaming call.
	DoGenerate(ctx context.Context, opts CallOptions) (*GenerateResult, error)

	// DoStream performs a streaming call.
	DoStream(ctx context.Context, opts CallOptions) (*StreamResult, error)
}

// EventStream is a lazy, single-pass sequence of stream parts. Recv returns
// io.EOF once the sequence is exhausted. A stream that ends without a
// StreamFinish part terminated abnormally.
type EventStream interface {
	Recv() (StreamPart, error)
	Close() error
}

// StreamResult is the outcome of starting a streaming call.
type StreamResult struct {
	Stream   EventStream
	Warnings []Warning
	Request  RequestInfo
	Response ResponseInfo
}
