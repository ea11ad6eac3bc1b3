package config

import "testing"

func TestLLMProviderType_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		value LLMProviderType
		want  bool
	}{
		{"anthropic is valid", LLMProviderTypeAnthropic, true},
		{"openai is valid", LLMProviderTypeOpenAI, true},
		{"local is valid", LLMProviderTypeLocal, true},
		{"empty is invalid", LLMProviderType(""), false},
		{"unknown is invalid", LLMProviderType("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
