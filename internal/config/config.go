package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Admin    AdminConfig    `yaml:"admin"`
	Reset    ResetConfig    `yaml:"reset"`
	Backups  BackupsConfig  `yaml:"backups"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Mode         string        `yaml:"mode"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	MySQL    MySQLConfig    `yaml:"mysql"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Charset  string `yaml:"charset"`
}

type SessionConfig struct {
	Secret      string        `yaml:"secret"`
	ExpiresIn   time.Duration `yaml:"expires_in"`
	RememberFor time.Duration `yaml:"remember_for"`
	Issuer      string        `yaml:"issuer"`
	Secure      bool          `yaml:"secure"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost"`
}

type UploadsConfig struct {
	Dir               string   `yaml:"dir"`
	MaxBytes          int64    `yaml:"max_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

type AdminConfig struct {
	Email           string `yaml:"email"`
	Name            string `yaml:"name"`
	DefaultPassword string `yaml:"default_password"`
}

type ResetConfig struct {
	TokenTTL   time.Duration `yaml:"token_ttl"`
	ExposeLink bool          `yaml:"expose_link"`
}

type BackupsConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration usable without a file: SQLite in ./data,
// the municipal admin account and a 16 MiB upload limit.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			Mode:         "release",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Type:   "sqlite",
			SQLite: SQLiteConfig{Path: "data/portal.db"},
			MySQL:  MySQLConfig{Port: 3306, Charset: "utf8mb4"},
		},
		Session: SessionConfig{
			Secret:      "portal-dev-secret-change-me",
			ExpiresIn:   24 * time.Hour,
			RememberFor: 30 * 24 * time.Hour,
			Issuer:      "civic-portal",
		},
		Security: SecurityConfig{BcryptCost: 10},
		Uploads: UploadsConfig{
			Dir:               "static/uploads",
			MaxBytes:          16 << 20,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "pdf", "doc", "docx"},
		},
		Admin: AdminConfig{
			Email:           "admin@ayuntamiento.gob",
			Name:            "Administrador",
			DefaultPassword: "admin123",
		},
		Reset:   ResetConfig{TokenTTL: 24 * time.Hour},
		Backups: BackupsConfig{Dir: "data/backups"},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Load reads the configuration file and environment variables. A missing
// file is not an error; defaults and the environment still apply.
func Load(configPath string) (*Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directory exists for SQLite
	if cfg.Database.Type == "sqlite" {
		dataDir := filepath.Dir(cfg.Database.SQLite.Path)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.Uploads.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORTAL_SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := os.Getenv("PORTAL_DB_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("PORTAL_DB_PATH"); v != "" {
		cfg.Database.SQLite.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.Postgres.DSN = v
	}
	if v := os.Getenv("PORTAL_MYSQL_HOST"); v != "" {
		cfg.Database.MySQL.Host = v
	}
	if v := os.Getenv("PORTAL_MYSQL_USER"); v != "" {
		cfg.Database.MySQL.Username = v
	}
	if v := os.Getenv("PORTAL_MYSQL_PASSWORD"); v != "" {
		cfg.Database.MySQL.Password = v
	}
	if v := os.Getenv("PORTAL_MYSQL_DATABASE"); v != "" {
		cfg.Database.MySQL.Database = v
	}
	if v := os.Getenv("PORTAL_ADMIN_EMAIL"); v != "" {
		cfg.Admin.Email = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("PORTAL_UPLOAD_DIR"); v != "" {
		cfg.Uploads.Dir = v
	}
	if v := os.Getenv("PORTAL_SERVER_MODE"); v != "" {
		cfg.Server.Mode = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PORTAL_RESET_EXPOSE_LINK"); v != "" {
		if expose, err := strconv.ParseBool(v); err == nil {
			cfg.Reset.ExposeLink = expose
		}
	}
}

// Validate checks the settings that would otherwise fail late, at the first
// request that touches them.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("SQLite path is required")
		}
	case "postgres":
		if c.Database.Postgres.DSN == "" {
			return fmt.Errorf("PostgreSQL DSN is required")
		}
	case "mysql":
		if c.Database.MySQL.Username == "" {
			return fmt.Errorf("MySQL username is required")
		}
		if c.Database.MySQL.Database == "" {
			return fmt.Errorf("MySQL database name is required")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}
	if c.Admin.Email == "" {
		return fmt.Errorf("admin email is required")
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	return nil
}

// AllowedExtension reports whether ext (with or without the leading dot) is
// in the upload allow-list.
func (u UploadsConfig) AllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range u.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
