// Package config holds the process configuration and its defaults.
package config

import (
	"fmt"
	"strings"
)

type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel is one of debug, info, warn, error. LogFormat is text or json.
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// DBDriver selects postgres or sqlite. DBDSN, when set, is passed to the
	// driver as is; otherwise a postgres DSN is built from the DB* fields.
	DBDriver   string `koanf:"db_driver"`
	DBDSN      string `koanf:"db_dsn"`
	DBHost     string `koanf:"db_host"`
	DBPort     string `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_sslmode"`

	// JWTSecret verifies bearer tokens issued by the account service.
	JWTSecret string `koanf:"jwt_secret"`

	// CORSOrigins is a comma-separated list of allowed origins.
	CORSOrigins string `koanf:"cors_origins"`

	QuizTotalQuestions int     `koanf:"quiz_total_questions"`
	QuizEBRWQuestions  int     `koanf:"quiz_ebrw_questions"`
	DefaultProficiency float64 `koanf:"default_proficiency"`

	// RandomSeed seeds question tie-breaking. Zero means seed from the clock.
	RandomSeed int64 `koanf:"random_seed"`

	// AMQPURL enables quiz.completed publishing when set.
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`

	MetricsEnabled bool `koanf:"metrics_enabled"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// New returns a Config filled with defaults.
func New() *Config {
	return &Config{
		Addr:               ":8080",
		LogLevel:           "info",
		LogFormat:          "text",
		DBDriver:           DriverPostgres,
		DBHost:             "localhost",
		DBPort:             "5432",
		DBUser:             "pinpoint",
		DBPassword:         "pinpoint",
		DBName:             "pinpoint",
		DBSSLMode:          "disable",
		CORSOrigins:        "*",
		QuizTotalQuestions: 10,
		QuizEBRWQuestions:  5,
		DefaultProficiency: 1.0,
		AMQPExchange:       "pinpoint.events",
		MetricsEnabled:     true,
	}
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver == DriverSQLite {
		return "pinpoint.db"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Origins splits CORSOrigins, dropping blanks.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != DriverPostgres && c.DBDriver != DriverSQLite:
		return fmt.Errorf("%w: unknown db_driver %q", ErrInvalidConfig, c.DBDriver)
	case c.QuizTotalQuestions <= 0:
		return fmt.Errorf("%w: quiz_total_questions must be positive", ErrInvalidConfig)
	case c.QuizEBRWQuestions < 0 || c.QuizEBRWQuestions > c.QuizTotalQuestions:
		return fmt.Errorf("%w: quiz_ebrw_questions must be between 0 and quiz_total_questions", ErrInvalidConfig)
	case c.DefaultProficiency < 1 || c.DefaultProficiency > 10:
		return fmt.Errorf("%w: default_proficiency must be within [1, 10]", ErrInvalidConfig)
	}
	return nil
}
