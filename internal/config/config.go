package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// one or more environment variables. The types reflect how the values are
// used in the application: strings for identifiers and secrets, ints for
// durations and costs.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	BcryptCost int    // bcrypt cost for password hashing

	DBMaxOpenConns   int // connection pool ceiling
	DBMaxIdleConns   int // idle connections kept around
	DBConnMaxLifeMin int // connection lifetime in minutes

	Keys          KeyRing // signing keys for access tokens
	Audience      string  // audience claim stamped into and checked on tokens
	ClockSkewSec  int     // clock-skew tolerance applied during verification
	RefreshTTLMin int     // refresh token time-to-live in minutes

	PublicURL string // frontend base URL used in redirects and reset links

	SMTPHost string // SMTP server host (empty disables outgoing mail)
	SMTPPort string // SMTP server port
	SMTPFrom string // From address on notification mail
	SMTPUser string // SMTP auth username (optional)
	SMTPPass string // SMTP auth password (optional)

	GitHubClientID     string // OAuth2 client id (empty disables social login)
	GitHubClientSecret string // OAuth2 client secret
	GitHubRedirectURL  string // OAuth2 callback URL registered with the provider
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message. The signing key ring is
// validated eagerly so a misconfigured ring fails at startup rather than on
// the first sign-in.
func Load() Config {
	ring, err := ParseKeyRing(os.Getenv("TOKEN_KEYS"), os.Getenv("TOKEN_SECRET"))
	if err != nil {
		log.Fatalf("invalid signing key configuration: %v", err)
	}
	return Config{
		Env:        must("APP_ENV"),
		Port:       must("APP_PORT"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"), // empty allowed
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		BcryptCost: mustInt("BCRYPT_COST"),

		DBMaxOpenConns:   atoiDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:   atoiDefault("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifeMin: atoiDefault("DB_CONN_MAX_LIFETIME_MIN", 30),

		Keys:          ring,
		Audience:      getenv("TOKEN_AUDIENCE", "avialex"),
		ClockSkewSec:  atoiDefault("TOKEN_CLOCK_SKEW_SEC", 60),
		RefreshTTLMin: atoiDefault("REFRESH_TOKEN_TTL_MIN", 43200), // 30 days

		PublicURL: getenv("APP_PUBLIC_URL", "http://localhost:3000"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		SMTPFrom: getenv("SMTP_FROM", "projetoavialex@gmail.com"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),

		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubRedirectURL:  os.Getenv("GITHUB_REDIRECT_URL"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// getenv returns the value of the variable or the default when unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// atoiDefault parses an optional integer variable, falling back to def when
// the variable is unset or malformed.
func atoiDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
