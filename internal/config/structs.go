package config

type Config struct {
	// App: Global application metadata
	App AppConfig `mapstructure:"app"`

	// Server: Network configuration and execution environment
	Server ServerConfig `mapstructure:"server"`

	// BaseURL: The public-facing root URL used in emailed links
	BaseURL string `mapstructure:"base_url"`

	// Database: SQLite location and audit-log retention
	Database DatabaseConfig `mapstructure:"database"`

	// Guest: In-memory guest session store
	Guest GuestConfig `mapstructure:"guest"`

	// Security: Tokens, CORS whitelist, and rate limiting
	Security SecurityConfig `mapstructure:"security"`

	// Storage: Object storage for registered users' images
	Storage StorageConfig `mapstructure:"storage"`

	// Mail: SMTP settings for password reset and welcome emails
	Mail MailConfig `mapstructure:"mail"`

	// Cache: In-memory thumbnail cache
	Cache CacheConfig `mapstructure:"cache"`
}

type AppConfig struct {
	// Name: Identity of the service used in the banner and emails
	Name string `mapstructure:"name"`

	// Version: Application semantic version (e.g., "0.1.0")
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	// Port: The TCP port the HTTP server will bind to (default: 8000)
	Port int `mapstructure:"port"`

	// Env: Execution context (development, staging, production)
	Env string `mapstructure:"env"`
}

type DatabaseConfig struct {
	// Path: SQLite database file (e.g., ./data/annotator.db)
	Path string `mapstructure:"path"`

	// LogRetention: Audit logs older than this are pruned (e.g., "720h")
	LogRetention string `mapstructure:"log_retention"`

	// PruneInterval: Frequency of the retention worker (e.g., "1h")
	PruneInterval string `mapstructure:"prune_interval"`
}

type GuestConfig struct {
	// SessionTimeout: Idle time after which a guest session is reclaimed (e.g., "120m")
	SessionTimeout string `mapstructure:"session_timeout"`

	// ReapInterval: How often expired sessions are swept (e.g., "10m")
	ReapInterval string `mapstructure:"reap_interval"`

	// CascadeDatasetAnnotations: Deleting a dataset also drops its images' annotation documents
	CascadeDatasetAnnotations bool `mapstructure:"cascade_dataset_annotations"`

	// CascadeDatasetLabels: Deleting a dataset also drops its labels
	CascadeDatasetLabels bool `mapstructure:"cascade_dataset_labels"`

	// MaxUploadSize: Maximum multipart payload for guest uploads (e.g., "20MB")
	MaxUploadSize string `mapstructure:"max_upload_size"`
}

type SecurityConfig struct {
	// JWTSecret: HS256 signing key for access tokens
	JWTSecret string `mapstructure:"jwt_secret"`

	// TokenTTL: Lifetime of registered users' tokens (e.g., "30m")
	TokenTTL string `mapstructure:"token_ttl"`

	// GuestTokenTTL: Lifetime of guest tokens (e.g., "120m")
	GuestTokenTTL string `mapstructure:"guest_token_ttl"`

	// ResetTokenTTL: Lifetime of password reset links (e.g., "1h")
	ResetTokenTTL string `mapstructure:"reset_token_ttl"`

	// CorsOrigins: List of allowed domains for browser-based cross-origin requests
	CorsOrigins []string `mapstructure:"cors_origins"`

	// RateLimit: Per-IP token bucket
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	// Enabled: Global toggle for the rate limiting middleware
	Enabled bool `mapstructure:"enabled"`

	// Requests: Number of allowed requests per time window
	Requests int `mapstructure:"requests"`

	// Window: The timeframe for the request limit (e.g., "1s", "1m")
	Window string `mapstructure:"window"`

	// Burst: Temporary allowed spike capacity above the steady-rate limit
	Burst int `mapstructure:"burst"`
}

type StorageConfig struct {
	// Bucket: GCS bucket name; empty disables the presigned upload flow
	Bucket string `mapstructure:"bucket"`

	// URLTTL: Lifetime of presigned URLs (e.g., "15m")
	URLTTL string `mapstructure:"url_ttl"`
}

type MailConfig struct {
	// Host: SMTP host; empty prints emails to stdout instead
	Host string `mapstructure:"host"`

	// Port: SMTP port
	Port int `mapstructure:"port"`

	// Username / Password: SMTP credentials
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// From: Sender address
	From string `mapstructure:"from"`
}

type CacheConfig struct {
	// Enabled: Toggles the thumbnail cache
	Enabled bool `mapstructure:"enabled"`

	// MaxCapacity: Maximum RAM allocated for cache in MB (e.g., 64)
	MaxCapacity int `mapstructure:"max_capacity"`

	// TTL: Expiration time for cached items (e.g., "10m")
	TTL string `mapstructure:"ttl"`
}
