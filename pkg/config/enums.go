package config

// LLMProviderType identifies which provider backend a named LLM provider
// configuration talks to.
type LLMProviderType string

const (
	// LLMProviderTypeAnthropic calls the Anthropic Messages API.
	LLMProviderTypeAnthropic LLMProviderType = "anthropic"
	// LLMProviderTypeOpenAI calls the OpenAI chat completions API.
	LLMProviderTypeOpenAI LLMProviderType = "openai"
	// LLMProviderTypeLocal calls a locally hosted model over gRPC.
	LLMProviderTypeLocal LLMProviderType = "local"
)

// IsValid checks if the LLM provider type is one the gateway knows how to drive.
func (t LLMProviderType) IsValid() bool {
	switch t {
	case LLMProviderTypeAnthropic, LLMProviderTypeOpenAI, LLMProviderTypeLocal:
		return true
	default:
		return false
	}
}
