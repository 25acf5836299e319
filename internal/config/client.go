package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig holds configuration for the ingest CLI.
type ClientConfig struct {
	APIURL        string
	APIKey        string
	APITimeout    time.Duration
	UserAgent     string
	PollInterval  time.Duration
	Language      string
	MinConfidence float64
	Pdftoppm      string
	OCRDPI        int
}

// LoadClient reads the CLI configuration from the environment.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		APIURL:        os.Getenv("DOCINGEST_API_URL"),
		APIKey:        os.Getenv("DOCINGEST_API_KEY"),
		APITimeout:    envDuration("DOCINGEST_API_TIMEOUT", 60*time.Second),
		UserAgent:     envString("DOCINGEST_USER_AGENT", "docingest-cli/1.0"),
		PollInterval:  envDuration("DOCINGEST_POLL_INTERVAL", 3*time.Second),
		Language:      envString("DOCINGEST_LANGUAGE", "pt-BR"),
		MinConfidence: envFloat("DOCINGEST_MIN_CONFIDENCE", 0.6),
		Pdftoppm:      envString("DOCINGEST_PDFTOPPM", "pdftoppm"),
		OCRDPI:        envInt("DOCINGEST_OCR_DPI", 150),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("DOCINGEST_API_URL is required")
	}
	if !isHTTPURL(c.APIURL) {
		return fmt.Errorf("DOCINGEST_API_URL must start with http:// or https://, got %q", c.APIURL)
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCINGEST_API_KEY is required")
	}
	if c.Language != "pt-BR" && c.Language != "en" {
		return fmt.Errorf("DOCINGEST_LANGUAGE must be pt-BR or en, got %q", c.Language)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("DOCINGEST_MIN_CONFIDENCE must be within [0,1], got %v", c.MinConfidence)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("DOCINGEST_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	return nil
}
