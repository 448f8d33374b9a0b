package output

// Metrics interface - Output port for service instrumentation
type Metrics interface {
	// ChatHandled counts processed chat messages by outcome (ok, invalid, error)
	ChatHandled(outcome string)

	// ReplyResolved records which strategy and rule produced a reply and its token usage
	ReplyResolved(strategy, rule string, tokensUsed int)

	// GenerationFailed counts swallowed failures of the generation provider
	GenerationFailed(provider string)
}
