package core

// Config is the complete teamsbridge configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Bot     BotConfig     `yaml:"bot"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig is the inbound HTTP listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BotConfig is the bot identity and credential material handed to the
// protocol transport.
type BotConfig struct {
	Name         string `yaml:"name"`
	Alias        string `yaml:"alias"`
	AppID        string `yaml:"app_id"`
	ClientSecret string `yaml:"client_secret"`
	AppType      string `yaml:"app_type"`   // defaults to MultiTenant
	TenantID     string `yaml:"tenant_id"`
	ServiceURL   string `yaml:"service_url"` // explicit outbound endpoint override

	// AutoCreateConversations selects the deployment policy for sends to
	// rooms with no stored reference: create a proactive conversation instead
	// of failing.
	AutoCreateConversations bool `yaml:"auto_create_conversations"`
}

// LoggingConfig is the log output configuration.
type LoggingConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	File         string `yaml:"file"`          // log file path
	MaxSize      int    `yaml:"max_size"`      // single file max size in MB
	MaxBackups   int    `yaml:"max_backups"`   // number of backups to keep
	MaxAge       int    `yaml:"max_age"`       // maximum days to retain
	Compress     bool   `yaml:"compress"`      // compress rotated logs
	EnableStdout bool   `yaml:"enable_stdout"` // also write to stdout
}
