package agents

// ExchangeOptions carries everything a client needs to run one exchange
// beyond the history itself. Populated through ExchangeOption functions.
type ExchangeOptions struct {
	Model              string
	SystemPromptSuffix string
	MaxTokens          int

	// ImageRetentionLimit caps how many of the most recent image blocks are
	// sent with the request; zero keeps all of them.
	ImageRetentionLimit int

	Tools []Tool

	// OnProgress is called for every content block as the agent completes
	// it. This is the orchestration core's only visibility into remote
	// progress.
	OnProgress func(block ContentBlock)
	// OnToolOutput is called after each tool invocation with its result.
	OnToolOutput func(name string, result ToolResultBlock)
	// OnTurn is called for every assistant or tool turn produced along the
	// way, in order, before the exchange moves on. Callers use it to commit
	// turns into their history as the exchange progresses.
	OnTurn func(turn Turn)
}

type ExchangeOption func(*ExchangeOptions)

func WithModel(model string) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.Model = model
	}
}

// WithSystemPromptSuffix appends deployment-specific instructions to the
// client's base system prompt.
func WithSystemPromptSuffix(suffix string) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.SystemPromptSuffix = suffix
	}
}

func WithMaxTokens(maxTokens int) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.MaxTokens = maxTokens
	}
}

func WithImageRetentionLimit(limit int) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.ImageRetentionLimit = limit
	}
}

// WithTools adds tools the agent may invoke. Repeating this option appends.
func WithTools(tools ...Tool) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.Tools = append(o.Tools, tools...)
	}
}

func WithProgressCallback(callback func(block ContentBlock)) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.OnProgress = callback
	}
}

func WithToolOutputCallback(callback func(name string, result ToolResultBlock)) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.OnToolOutput = callback
	}
}

func WithTurnCommitter(callback func(turn Turn)) ExchangeOption {
	return func(o *ExchangeOptions) {
		o.OnTurn = callback
	}
}
