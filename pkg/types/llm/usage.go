package llm

// Usage represents token usage information from LLM API calls
type Usage struct {
	InputTokens  int // Regular input tokens count
	OutputTokens int // Output tokens generated
}

// TotalTokens returns the total number of tokens used
func (u *Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage sample into this one
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
