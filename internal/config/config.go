package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrMissingEnvironmentVariables = errors.New("missing required environment variables")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env              string  `mapstructure:"env"`      // current application environment (local, dev, prod etc)
	TelegramAPIToken string  `mapstructure:"-"`        // Telegram API token loaded from environment
	Cases            Cases   `mapstructure:"cases"`    // case bank location
	Data             Data    `mapstructure:"data"`     // ledger persistence section
	Quiz             Quiz    `mapstructure:"quiz"`     // session pacing and access control
	Storage          Storage `mapstructure:"storage"`  // object storage for rendered documents
	DB               DB      `mapstructure:"database"` // database configuration section
}

// Cases points at the case bank: either a single JSON file or a directory
// of JSON files that is re-scanned on every selection.
type Cases struct {
	Path string `mapstructure:"path"`
}

// Data selects where ledgers live.
type Data struct {
	Dir     string `mapstructure:"dir"`     // directory for JSON ledger files
	Backend string `mapstructure:"backend"` // "file" or "postgres"
}

// Quiz holds session pacing and per-group access control.
type Quiz struct {
	Groups        []int64            `mapstructure:"groups"`          // chat IDs the bot runs quizzes in
	Responders    map[string][]int64 `mapstructure:"responders"`      // per-group allowed responder user IDs; empty means everyone
	QuestionDelay time.Duration      `mapstructure:"question_delay"`  // pause before opening the next question
	NextCaseDelay time.Duration      `mapstructure:"next_case_delay"` // pause after a case before starting the next
}

// ResponderMap converts the string-keyed responders section (YAML map keys
// are strings) into the int64 group IDs used by the quiz service.
func (q Quiz) ResponderMap() (map[int64][]int64, error) {
	if len(q.Responders) == 0 {
		return nil, nil
	}
	m := make(map[int64][]int64, len(q.Responders))
	for key, users := range q.Responders {
		groupID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid responders group id %q: %w", key, err)
		}
		m[groupID] = users
	}
	return m, nil
}

// Storage describes the object store rendered PDFs are uploaded to. An empty
// bucket disables uploading.
type Storage struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`        // non-AWS S3-compatible endpoint, optional
	Prefix        string `mapstructure:"prefix"`          // key prefix inside the bucket
	PublicBaseURL string `mapstructure:"public_base_url"` // CDN or public base URL, optional
}

// DB contains database-related configuration parameters. It is only consulted
// when the postgres ledger backend is selected.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Load reads configuration from config files and environment variables.
func Load(path string) (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
	}

	// Set default values for configuration keys.
	v.SetDefault("env", "local")
	v.SetDefault("cases.path", "assets/cases")
	v.SetDefault("data.dir", "data")
	v.SetDefault("data.backend", "file")
	v.SetDefault("quiz.question_delay", "3s")
	v.SetDefault("quiz.next_case_delay", "10s")
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "APP_ENV")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.TelegramAPIToken = v.GetString("telegram_api_token")
	if cfg.TelegramAPIToken == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	// The database URL is only required for the postgres ledger backend.
	cfg.DB.URL = v.GetString("database_url")
	if cfg.Data.Backend == "postgres" && cfg.DB.URL == "" {
		return nil, ErrMissingEnvironmentVariables
	}

	if len(cfg.Quiz.Groups) == 0 {
		return nil, errors.New("quiz.groups must list at least one chat id")
	}

	return &cfg, nil
}
