package config

import (
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config covers both the client CLI and the local dev server. All values
// come from the environment, optionally seeded from a .env file.
type Config struct {
	BackendURL    string        `env:"FRAMESELECT_BACKEND_URL" envDefault:"http://localhost:8000"`
	PollInterval  time.Duration `env:"FRAMESELECT_POLL_INTERVAL" envDefault:"1s"`
	MaxPollCount  int           `env:"FRAMESELECT_MAX_POLLS" envDefault:"600"`
	BackoffFactor float64       `env:"FRAMESELECT_POLL_BACKOFF" envDefault:"1"`
	DownloadDir   string        `env:"FRAMESELECT_DOWNLOAD_DIR" envDefault:"."`

	ServerPort    string `env:"FRAMESELECT_SERVER_PORT" envDefault:"8000"`
	ServerDataDir string `env:"FRAMESELECT_SERVER_DATA_DIR" envDefault:"./storage"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("error loading .env file, continuing with environment variables: %v", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
