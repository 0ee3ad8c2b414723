// Package config loads runtime settings from a YAML file and the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/researchgraph/crossref/internal/util"
)

// DefaultFile is the config file consulted when no --config flag is given.
// It is optional; an explicitly named file must exist.
const DefaultFile = "crossref.yaml"

// Database holds the relational-store connection settings. URL, when set,
// wins over the individual fields.
type Database struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ConnString returns the pgx connection string for the configured database.
func (d Database) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// Config is the full runtime configuration.
type Config struct {
	Cache          string   `yaml:"cache"`
	VersionsFolder string   `yaml:"versions-folder"`
	Migrations     string   `yaml:"migrations"`
	Database       Database `yaml:"database"`

	FlushThreshold int  `yaml:"flush-threshold"`
	MaxParallel    int  `yaml:"max-parallel"`
	MaxAttempts    int  `yaml:"max-attempts"`
	AttemptDelayMS int  `yaml:"attempt-delay-ms"`
	Debug          bool `yaml:"debug"`
}

func defaults() *Config {
	return &Config{
		Cache:          util.GetEnvString("CROSSREF_CACHE", "crossref/cache"),
		VersionsFolder: util.GetEnvString("VERSIONS_FOLDER", "versions"),
		Migrations:     util.GetEnvString("MIGRATIONS", "migrations"),
		Database: Database{
			URL:      util.GetEnv("DATABASE_URL"),
			Host:     util.GetEnvString("DB_HOST", "localhost"),
			Port:     util.GetEnvInt("DB_PORT", 5432),
			User:     util.GetEnv("DB_USER"),
			Password: util.GetEnv("DB_PASSWORD"),
			Name:     util.GetEnvString("DB_NAME", "crossref"),
		},
		FlushThreshold: util.GetEnvInt("FLUSH_THRESHOLD", 10000),
		MaxParallel:    util.GetEnvInt("MAX_PARALLEL", 1),
		MaxAttempts:    util.GetEnvInt("MAX_ATTEMPTS", 10),
		AttemptDelayMS: util.GetEnvInt("ATTEMPT_DELAY_MS", 1000),
		Debug:          util.GetEnvBool("DEBUG", false),
	}
}

// Load builds the configuration from environment-backed defaults overlaid
// with the YAML file at path. An empty path falls back to DefaultFile, which
// may be absent; a named file that cannot be read is a startup error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
