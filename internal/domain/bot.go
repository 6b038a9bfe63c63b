package domain

// BotConfig is the shared base record for every bot, regardless of the
// messaging platform it is attached to. Platform configs embed it and add
// their own connection fields. The core reads it, never writes it; the
// configuration store owns it.
type BotConfig struct {
	ID            string `json:"id" yaml:"id"`
	Model         string `json:"model" yaml:"model"`
	Context       string `json:"context" yaml:"context"`
	Knowledgebase string `json:"knowledgebase,omitempty" yaml:"knowledgebase,omitempty"`
	APIKey        string `json:"api_key" yaml:"api_key"`

	// Capability flags controlling which tools a conversation may use.
	FunctionInternet bool `json:"function_internet" yaml:"function_internet"`
	FunctionTime     bool `json:"function_time" yaml:"function_time"`
}

// HasKnowledgebase reports whether the bot has knowledge-base grounding
// configured.
func (b BotConfig) HasKnowledgebase() bool {
	return b.Knowledgebase != ""
}

// DiscordBotConfig extends the base record with Discord connection fields.
type DiscordBotConfig struct {
	BotConfig `yaml:",inline"`

	BotToken   string `json:"bot_token" yaml:"bot_token"`
	StatusText string `json:"status_text,omitempty" yaml:"status_text,omitempty"`
}
