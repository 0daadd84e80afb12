package llm

// ProviderInfo describes one chat endpoint. Every provider here speaks the
// OpenAI-compatible chat protocol, so a single generic client serves all of
// them; per-provider differences are data in this table, not code.
//
// SupportsTools reports whether the endpoint accepts the tool role and the
// toolCalls field verbatim. Providers with SupportsTools false get their
// history rewritten by the message normalizer before a request is sent.
type ProviderInfo struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	BaseURL       string `json:"base_url"`
	APIKeyEnv     string `json:"api_key_env,omitempty"`
	SupportsTools bool   `json:"supports_tools"`
	DefaultModel  string `json:"default_model"`
}

// Providers is the built-in provider table.
var Providers = []ProviderInfo{
	{
		ID: "openai", DisplayName: "OpenAI",
		BaseURL: "https://api.openai.com/v1", APIKeyEnv: "OPENAI_API_KEY",
		SupportsTools: true, DefaultModel: "gpt-5.2",
	},
	{
		ID: "openrouter", DisplayName: "OpenRouter",
		BaseURL: "https://openrouter.ai/api/v1", APIKeyEnv: "OPENROUTER_API_KEY",
		SupportsTools: true, DefaultModel: "anthropic/claude-sonnet-4-5",
	},
	{
		ID: "deepseek", DisplayName: "DeepSeek",
		BaseURL: "https://api.deepseek.com/v1", APIKeyEnv: "DEEPSEEK_API_KEY",
		SupportsTools: true, DefaultModel: "deepseek-chat",
	},
	{
		ID: "groq", DisplayName: "Groq",
		BaseURL: "https://api.groq.com/openai/v1", APIKeyEnv: "GROQ_API_KEY",
		SupportsTools: true, DefaultModel: "llama-3.3-70b-versatile",
	},
	{
		ID: "ollama", DisplayName: "Ollama",
		BaseURL: "http://localhost:11434/v1",
		SupportsTools: false, DefaultModel: "llama3.1",
	},
	{
		ID: "lmstudio", DisplayName: "LM Studio",
		BaseURL: "http://localhost:1234/v1",
		SupportsTools: false, DefaultModel: "local-model",
	},
}

// GetProvider returns the table entry for a provider id, or nil if unknown.
func GetProvider(id string) *ProviderInfo {
	for i := range Providers {
		if Providers[i].ID == id {
			return &Providers[i]
		}
	}
	return nil
}

// ListProviders returns a copy of the provider table.
func ListProviders() []ProviderInfo {
	result := make([]ProviderInfo, len(Providers))
	copy(result, Providers)
	return result
}

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	Aliases       []string `json:"aliases,omitempty"`
}

// Models is the built-in model catalog. The catalog is advisory: any model id
// the endpoint accepts can be used, known or not.
var Models = []ModelInfo{
	{
		ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2",
		ContextWindow: 1047576, Aliases: []string{"gpt5"},
	},
	{
		ID: "gpt-5.2-mini", Provider: "openai", DisplayName: "GPT-5.2 Mini",
		ContextWindow: 1047576, Aliases: []string{"gpt5-mini"},
	},
	{
		ID: "anthropic/claude-sonnet-4-5", Provider: "openrouter", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, Aliases: []string{"sonnet"},
	},
	{
		ID: "anthropic/claude-opus-4-6", Provider: "openrouter", DisplayName: "Claude Opus 4.6",
		ContextWindow: 200000, Aliases: []string{"opus"},
	},
	{
		ID: "deepseek-chat", Provider: "deepseek", DisplayName: "DeepSeek V3",
		ContextWindow: 128000,
	},
	{
		ID: "llama-3.3-70b-versatile", Provider: "groq", DisplayName: "Llama 3.3 70B",
		ContextWindow: 131072, Aliases: []string{"llama-70b"},
	},
	{
		ID: "llama3.1", Provider: "ollama", DisplayName: "Llama 3.1 (local)",
		ContextWindow: 131072,
	},
}

// GetModelInfo returns the catalog entry for a model id or alias, or nil if
// unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}
