// Package config turns viper settings into a validated Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TRACKER_SERVER_PORT.
const EnvPrefix = "TRACKER"

// EnvKeyReplacer maps nested keys to env names: server.port -> SERVER_PORT.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

type Config struct {
	StateDir   string `validate:"required"`
	DataDir    string `validate:"required"`
	UploadsDir string `validate:"required"`

	Server    Server
	Session   Session
	Locale    Locale
	Bootstrap Bootstrap
	Log       Log
}

type Server struct {
	Host        string
	Port        int   `validate:"min=1,max=65535"`
	MaxUploadMB int64 `validate:"min=1"`
}

// Addr is the listen address for net/http.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes converts the configured limit to bytes.
func (s Server) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

type Session struct {
	TTL          time.Duration `validate:"min=1m"`
	SecureCookie bool
}

type Locale struct {
	Default string `validate:"required,min=2"`
}

type Bootstrap struct {
	AdminUser     string `validate:"required"`
	AdminPassword string
}

type Log struct {
	File   string
	Format string `validate:"oneof=text json"`
	Level  string `validate:"oneof=debug info warn error"`
}

// DefaultStateDir is ~/.config/tracker.
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tracker"
	}
	return filepath.Join(home, ".config", "tracker")
}

// SetDefaults registers every key with its default on v. Directory defaults
// derive from state_dir at read time, so they follow an overridden state_dir.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("state_dir", DefaultStateDir())
	v.SetDefault("data_dir", "")
	v.SetDefault("uploads_dir", "")
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("session.secure_cookie", false)
	v.SetDefault("locale.default", "fr")
	v.SetDefault("bootstrap.admin_user", "admin")
	v.SetDefault("bootstrap.admin_password", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
}

// FromViper reads and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	stateDir := v.GetString("state_dir")
	cfg := &Config{
		StateDir:   stateDir,
		DataDir:    orDefault(v.GetString("data_dir"), filepath.Join(stateDir, "data")),
		UploadsDir: orDefault(v.GetString("uploads_dir"), filepath.Join(stateDir, "uploads")),
		Server: Server{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			MaxUploadMB: v.GetInt64("server.max_upload_mb"),
		},
		Session: Session{
			TTL:          v.GetDuration("session.ttl"),
			SecureCookie: v.GetBool("session.secure_cookie"),
		},
		Locale: Locale{
			Default: v.GetString("locale.default"),
		},
		Bootstrap: Bootstrap{
			AdminUser:     v.GetString("bootstrap.admin_user"),
			AdminPassword: v.GetString("bootstrap.admin_password"),
		},
		Log: Log{
			File:   v.GetString("log.file"),
			Format: v.GetString("log.format"),
			Level:  v.GetString("log.level"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports the first failing key.
func (c *Config) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %w", err)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
