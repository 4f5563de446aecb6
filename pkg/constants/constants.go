package constants

import "time"

// Platform message limits
const (
	// MaxActivityTextLength is the Bot Framework's activity text character limit
	MaxActivityTextLength = 2000
)

// Service endpoints
const (
	// DefaultServerPort is the conventional Bot Framework local listening port
	DefaultServerPort = 3978
	// DefaultServiceURLTemplate is the regional service endpoint used when
	// creating proactive conversations without an explicit BOT_SERVICE_URL.
	// The %s placeholder is the tenant id.
	DefaultServiceURLTemplate = "https://smba.trafficmanager.net/amer/%s/"
	// TeamsChannelID is the channel id the platform reports for Teams traffic
	TeamsChannelID = "msteams"
	// ErrorSchemaURL is the schema attached to turn-error trace activities
	ErrorSchemaURL = "https://www.botframework.com/schemas/error"
)

// Credential defaults
const (
	// DefaultAppType is the credential app type used when BOT_APP_TYPE is unset
	DefaultAppType = "MultiTenant"
)

// User-facing notices
const (
	// TurnErrorNotice is the fixed apology sent into a turn that failed
	TurnErrorNotice = "The bot encountered an error."
)

// Timeouts
const (
	// DefaultHTTPTimeout is the timeout for outbound service calls
	DefaultHTTPTimeout = 30 * time.Second
	// DefaultShutdownTimeout is the grace period for draining the HTTP server
	DefaultShutdownTimeout = 5 * time.Second
)

// Secret masking
const (
	// MinSecretLengthForMasking is the minimum secret length to apply masking
	MinSecretLengthForMasking = 10
	// SecretMaskPrefixLength is the length of prefix to show before masking
	SecretMaskPrefixLength = 4
	// SecretMaskSuffixLength is the length of suffix to show after masking
	SecretMaskSuffixLength = 4
)

// Logging defaults
const (
	// DefaultLogMaxSize is the default maximum log file size in MB
	DefaultLogMaxSize = 100
	// DefaultLogMaxBackups is the default number of rotated files to keep
	DefaultLogMaxBackups = 5
	// DefaultLogMaxAge is the default maximum number of days to retain old logs
	DefaultLogMaxAge = 30
)
