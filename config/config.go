// ABOUTME: Runtime configuration resolved once at startup
// ABOUTME: Loads .env and environment variables, assembles the Google client ID from its fragment
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// AppName names the XDG data directory.
	AppName = "peoplelogin"

	// ClientIDSuffix is the fixed tail of every Google OAuth web client ID.
	ClientIDSuffix = ".apps.googleusercontent.com"

	// MaxPageSize bounds how many connections a single listing returns.
	MaxPageSize = 10
)

var (
	// ErrNoClientID is returned when no client ID or fragment is configured.
	ErrNoClientID = errors.New("google client ID not configured: set GOOGLE_CLIENT_ID, GOOGLE_CLIENT_ID_PREFIX or PEOPLELOGIN_KEY_FILE")

	// ErrEmptyFragment is returned when the key file holds no usable line.
	ErrEmptyFragment = errors.New("credential fragment is empty")
)

// Config holds all settings for a peoplelogin process.
type Config struct {
	// ClientID is the assembled OAuth client identifier. Filled by Load.
	ClientID string `env:"-"`

	FullClientID   string        `env:"GOOGLE_CLIENT_ID"`
	ClientIDPrefix string        `env:"GOOGLE_CLIENT_ID_PREFIX"`
	KeyFile        string        `env:"PEOPLELOGIN_KEY_FILE"`
	ClientSecret   string        `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL    string        `env:"PEOPLELOGIN_REDIRECT_URL" envDefault:"http://localhost:8080/oauth/callback"`
	ListenAddr     string        `env:"PEOPLELOGIN_LISTEN_ADDR" envDefault:":8080"`
	DBPath         string        `env:"PEOPLELOGIN_DB_PATH"`
	PageSize       int           `env:"PEOPLELOGIN_PAGE_SIZE" envDefault:"10"`
	LogoutURL      string        `env:"PEOPLELOGIN_LOGOUT_URL" envDefault:"https://accounts.google.com/logout"`
	ConsentTimeout time.Duration `env:"PEOPLELOGIN_CONSENT_TIMEOUT" envDefault:"5m"`
	SessionIdle    time.Duration `env:"PEOPLELOGIN_SESSION_IDLE" envDefault:"30m"`
	LogLevel       string        `env:"PEOPLELOGIN_LOG_LEVEL" envDefault:"info"`

	// clientIDErr remembers why the client ID could not be assembled.
	clientIDErr error
}

// Load reads optional dotenv files (default ".env") and then the process
// environment. Missing dotenv files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if cfg.PageSize <= 0 || cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}

	cfg.ClientID, cfg.clientIDErr = cfg.resolveClientID()

	return &cfg, nil
}

// RequireClientID reports whether a client ID was assembled at load time.
func (c *Config) RequireClientID() error {
	if c.ClientID != "" {
		return nil
	}
	if c.clientIDErr != nil {
		return c.clientIDErr
	}
	return ErrNoClientID
}

func (c *Config) resolveClientID() (string, error) {
	if c.FullClientID != "" {
		return c.FullClientID, nil
	}

	prefix := c.ClientIDPrefix
	if prefix == "" && c.KeyFile != "" {
		fragment, err := ReadFragment(c.KeyFile)
		if err != nil {
			return "", err
		}
		prefix = fragment
	}
	if prefix == "" {
		return "", ErrNoClientID
	}

	return AssembleClientID(prefix)
}

// AssembleClientID joins a credential fragment with the fixed suffix.
// A fragment that already carries the suffix is returned unchanged.
func AssembleClientID(fragment string) (string, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return "", ErrEmptyFragment
	}
	if strings.HasSuffix(fragment, ClientIDSuffix) {
		return fragment, nil
	}
	return fragment + ClientIDSuffix, nil
}

// ReadFragment returns the first non-blank line of the key file.
func ReadFragment(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open key file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}

	return "", ErrEmptyFragment
}

// DataDir returns the XDG data directory for peoplelogin.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultDBPath returns the XDG-compliant SQLite path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "peoplelogin.db")
}
