package models

// SlackUser represents a workspace member as returned by the users.info API
type SlackUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name,omitempty"`
}

// DisplayName returns the name used when rendering the user in a transcript.
// Real name is preferred, username is the fallback.
func (u *SlackUser) DisplayName() string {
	if u.RealName != "" {
		return u.RealName
	}
	return u.Name
}

// RawMessage represents a channel message as fetched from conversation history.
// UserID is empty for bot and system messages.
type RawMessage struct {
	UserID    string
	Text      string
	Timestamp string // Slack ts, "<epoch>.<sequence>"
}

// EnrichedMessage is a raw message whose author resolved successfully
type EnrichedMessage struct {
	DisplayName string
	UserID      string
	Text        string
	Timestamp   string
}

// DigestConfig holds settings for the scheduled daily digest
type DigestConfig struct {
	Enabled  bool
	Schedule string   // cron expression, e.g. "0 7 * * *"
	Channels []string // channel IDs that receive the digest
}

// BotConfig represents bot configuration
type BotConfig struct {
	// Slack settings
	SlackBotToken      string
	SlackSigningSecret string
	ListenAddr         string

	// LLM settings
	LLMProvider  string // "openai" or "gemini"
	OpenAIAPIKey string
	GeminiAPIKey string
	LLMTimeout   int // seconds
	LLMMaxTokens int

	// History fetch settings
	HistoryLimit    int
	HistoryFailOpen bool

	// App settings
	Timezone    string
	LogLevel    string
	Environment string

	// Scheduled digest
	Digest DigestConfig
}
