package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvProduction = "production"

// Runtime is shared by every service. It decides where the rest of the
// configuration comes from.
type Runtime struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	EnvFile  string `envconfig:"APP_ENV_FILE" default:".env"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// OTLP collector; tracing is disabled when empty.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:""`
}

func (r Runtime) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(r.AppEnv), EnvProduction)
}

// Store selects the document store backing the services.
type Store struct {
	Backend string `envconfig:"STORE_BACKEND" default:"firestore"` // firestore|postgres
	PGDSN   string `envconfig:"PG_DSN" default:""`

	FirebaseProjectID   string `envconfig:"FIREBASE_PROJECT_ID" default:""`
	FirebaseCredentials string `envconfig:"FIREBASE_CREDENTIALS_JSON" default:""`
}

func (s Store) Validate() error {
	switch s.Backend {
	case "firestore":
		return nil
	case "postgres":
		if s.PGDSN == "" {
			return errors.New("PG_DSN is required when STORE_BACKEND=postgres")
		}
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", s.Backend)
	}
}

// Load fills dst from the environment. Outside production the dotenv file
// named by APP_ENV_FILE is read first; variables already present in the
// process environment always win.
func Load(dst any) (Runtime, error) {
	var rt Runtime
	if err := envconfig.Process("", &rt); err != nil {
		return rt, err
	}
	if !rt.IsProduction() {
		if err := godotenv.Load(rt.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return rt, fmt.Errorf("load %s: %w", rt.EnvFile, err)
		}
		// the dotenv file may itself set LOG_LEVEL etc.
		if err := envconfig.Process("", &rt); err != nil {
			return rt, err
		}
	}
	if dst != nil {
		if err := envconfig.Process("", dst); err != nil {
			return rt, err
		}
	}
	return rt, nil
}
