// Package config loads the application configuration: a yaml file for the
// site, accounts and collaborator settings, and COURTBOOKER_* environment
// variables for the runtime profile (which browser tier runs, headless
// mode, window length).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/darren-wangg/court-booker-sub000/internal/models"
	"github.com/darren-wangg/court-booker-sub000/internal/session"
)

// Config is the file-sourced part of the configuration.
type Config struct {
	Site     SiteConfig           `yaml:"site"`
	Accounts []models.Credentials `yaml:"accounts"`
	Email    EmailConfig          `yaml:"email"`
	Database DatabaseConfig       `yaml:"database"`
	Server   ServerConfig         `yaml:"server"`
}

// SiteConfig locates the reservation site's pages.
type SiteConfig struct {
	BaseURL          string `yaml:"base_url"`
	LoginPath        string `yaml:"login_path"`
	ReservationsPath string `yaml:"reservations_path"`
	BookingPath      string `yaml:"booking_path"`
}

func (s SiteConfig) LoginURL() string        { return s.BaseURL + s.LoginPath }
func (s SiteConfig) ReservationsURL() string { return s.BaseURL + s.ReservationsPath }
func (s SiteConfig) BookingURL() string      { return s.BaseURL + s.BookingPath }

// EmailConfig configures the SMTP notification consumer. A zero value
// disables notifications.
type EmailConfig struct {
	SMTP    SMTPConfig `yaml:"smtp"`
	From    string     `yaml:"from"`
	To      []string   `yaml:"to"`
	Subject string     `yaml:"subject"`
}

func (e EmailConfig) Enabled() bool {
	return e.SMTP.Host != "" && e.From != "" && len(e.To) > 0
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DatabaseConfig points at the results sink. Empty URL disables persistence
// (one-shot CLI runs do not need it).
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Runtime is the environment-derived part of the configuration.
type Runtime struct {
	// Constrained marks container-grade runtimes and changes the local
	// browser tier's flag set.
	Constrained bool `split_words:"true" default:"false"`
	// Headless controls the locally launched browser.
	Headless bool `default:"true"`
	// RemoteWS enables the remote managed-browser tier when set.
	RemoteWS string `split_words:"true"`
	// WindowDays is the check window length; the site supports 7 or 10.
	WindowDays int `split_words:"true" default:"7"`
}

// Profile converts the runtime settings into the session manager's profile.
func (r Runtime) Profile() session.RuntimeProfile {
	return session.RuntimeProfile{
		Constrained: r.Constrained,
		Headless:    r.Headless,
		RemoteWS:    r.RemoteWS,
	}
}

// LoadRuntime reads COURTBOOKER_* environment variables.
func LoadRuntime() (Runtime, error) {
	var r Runtime
	if err := envconfig.Process("courtbooker", &r); err != nil {
		return Runtime{}, fmt.Errorf("read runtime environment: %w", err)
	}
	if r.WindowDays != 7 && r.WindowDays != 10 {
		return Runtime{}, fmt.Errorf("COURTBOOKER_WINDOW_DAYS must be 7 or 10, got %d", r.WindowDays)
	}
	return r, nil
}

// GetConfigPath finds the configuration file: next to the executable, in the
// working directory, then under the user's home.
func GetConfigPath() string {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	candidate := filepath.Join(execDir, "configs", "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	candidate = filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}

	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".court-booker", "config.yaml")
}

// Load reads and validates the yaml configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.LoginPath == "" {
		c.Site.LoginPath = "/login"
	}
	if c.Site.ReservationsPath == "" {
		c.Site.ReservationsPath = "/reservations"
	}
	if c.Site.BookingPath == "" {
		c.Site.BookingPath = "/book"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate ensures the configuration is coherent.
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return fmt.Errorf("site.base_url is required")
	}
	if !strings.HasPrefix(c.Site.BaseURL, "http://") && !strings.HasPrefix(c.Site.BaseURL, "https://") {
		return fmt.Errorf("site.base_url must be an http(s) URL")
	}
	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	seen := make(map[string]struct{}, len(c.Accounts))
	for i, acct := range c.Accounts {
		if acct.ID == "" {
			return fmt.Errorf("accounts[%d].id is required", i)
		}
		if _, dup := seen[acct.ID]; dup {
			return fmt.Errorf("duplicate account id %q", acct.ID)
		}
		seen[acct.ID] = struct{}{}
		if acct.Email == "" || acct.Password == "" {
			return fmt.Errorf("account %q needs email and password", acct.ID)
		}
	}
	return nil
}

// Account selects configured credentials by id, defaulting to the first
// configured account when id is empty.
func (c *Config) Account(id string) (models.Credentials, error) {
	if id == "" {
		return c.Accounts[0], nil
	}
	for _, acct := range c.Accounts {
		if acct.ID == id {
			return acct, nil
		}
	}
	return models.Credentials{}, fmt.Errorf("unknown account id %q", id)
}
