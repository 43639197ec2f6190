package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pinpoint-prep/backend/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		convey.Convey("When loading with defaults only", func() {
			clearConfigEnv(t)

			cfg, err := config.Load()

			convey.Convey("Then the defaults come back", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBDriver, convey.ShouldEqual, config.DriverPostgres)
				convey.So(cfg.QuizTotalQuestions, convey.ShouldEqual, 10)
				convey.So(cfg.QuizEBRWQuestions, convey.ShouldEqual, 5)
				convey.So(cfg.DefaultProficiency, convey.ShouldEqual, 1.0)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeTrue)
				convey.So(cfg.DSN(), convey.ShouldEqual,
					"host=localhost port=5432 user=pinpoint password=pinpoint dbname=pinpoint sslmode=disable")
			})
		})

		convey.Convey("When environment variables are set", func() {
			clearConfigEnv(t)
			t.Setenv("PINPOINT_ADDR", ":9999")
			t.Setenv("PINPOINT_DB_DRIVER", "sqlite")
			t.Setenv("PINPOINT_DB_DSN", "file:test.db")
			t.Setenv("PINPOINT_QUIZ_TOTAL_QUESTIONS", "20")
			t.Setenv("PINPOINT_DEFAULT_PROFICIENCY", "5.5")
			t.Setenv("PINPOINT_METRICS_ENABLED", "false")
			t.Setenv("PINPOINT_RANDOM_SEED", "42")

			cfg, err := config.Load()

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9999")
				convey.So(cfg.DBDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.DSN(), convey.ShouldEqual, "file:test.db")
				convey.So(cfg.QuizTotalQuestions, convey.ShouldEqual, 20)
				convey.So(cfg.DefaultProficiency, convey.ShouldEqual, 5.5)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.RandomSeed, convey.ShouldEqual, 42)
			})
		})

		convey.Convey("When a YAML file is named", func() {
			clearConfigEnv(t)
			path := filepath.Join(t.TempDir(), "pinpoint.yaml")
			yaml := "addr: \":7070\"\ncors_origins: \"https://a.example, https://b.example\"\nquiz_ebrw_questions: 3\n"
			if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
				t.Fatal(err)
			}
			t.Setenv("PINPOINT_CONFIG", path)
			t.Setenv("PINPOINT_QUIZ_EBRW_QUESTIONS", "4")

			cfg, err := config.Load()

			convey.Convey("Then the file applies and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Origins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
				convey.So(cfg.QuizEBRWQuestions, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the named file is missing", func() {
			clearConfigEnv(t)
			t.Setenv("PINPOINT_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

			_, err := config.Load()

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is out of range", func() {
			clearConfigEnv(t)
			t.Setenv("PINPOINT_QUIZ_EBRW_QUESTIONS", "11")

			_, err := config.Load()

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("Then an unknown driver is rejected", func() {
			cfg.DBDriver = "oracle"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Then an empty address is rejected", func() {
			cfg.Addr = ""
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Then a default proficiency off the scale is rejected", func() {
			cfg.DefaultProficiency = 0.5
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			cfg.DefaultProficiency = 10.5
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("Then a sqlite driver without DSN gets a local file", func() {
			cfg.DBDriver = config.DriverSQLite
			convey.So(cfg.DSN(), convey.ShouldEqual, "pinpoint.db")
		})
	})
}

// clearConfigEnv unsets every PINPOINT_ variable for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PINPOINT_CONFIG", "PINPOINT_ADDR", "PINPOINT_LOG_LEVEL", "PINPOINT_LOG_FORMAT",
		"PINPOINT_DB_DRIVER", "PINPOINT_DB_DSN", "PINPOINT_DB_HOST", "PINPOINT_DB_PORT",
		"PINPOINT_DB_USER", "PINPOINT_DB_PASSWORD", "PINPOINT_DB_NAME", "PINPOINT_DB_SSLMODE",
		"PINPOINT_JWT_SECRET", "PINPOINT_CORS_ORIGINS", "PINPOINT_QUIZ_TOTAL_QUESTIONS",
		"PINPOINT_QUIZ_EBRW_QUESTIONS", "PINPOINT_DEFAULT_PROFICIENCY", "PINPOINT_RANDOM_SEED",
		"PINPOINT_AMQP_URL", "PINPOINT_AMQP_EXCHANGE", "PINPOINT_METRICS_ENABLED",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}
