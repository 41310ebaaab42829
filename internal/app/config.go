package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectPath string // .hcl file or directory

	OutputPath    string // CSV time series, empty disables
	ChartPath     string // HTML chart, empty disables
	PlotPath      string // static image, format from extension, empty disables
	LiveURL       string // socket.io server, empty disables
	LiveNamespace string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectPath == "" {
		return nil, errors.New("ProjectPath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errors.New("HealthcheckPort must be between 0 and 65535")
	}
	return &cfg, nil
}
