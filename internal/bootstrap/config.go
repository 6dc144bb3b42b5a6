package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ssorj/stagger/internal/amqpserver"
	"github.com/ssorj/stagger/internal/eventbus"
	"github.com/ssorj/stagger/internal/httpapi"
	"github.com/ssorj/stagger/internal/model"
	"github.com/ssorj/stagger/internal/persistence"
	"github.com/ssorj/stagger/internal/platform"
	"github.com/ssorj/stagger/internal/platform/mlog"
)

const (
	defaultDataDirName = "data"
	defaultHTTPPort    = 8080
	defaultAMQPPort    = 5672
)

// Config carries the environment-derived settings every surface needs.
type Config struct {
	EnvName  string `env:"ENV_NAME"`
	LogLevel string `env:"LOG_LEVEL"`

	Home     string `env:"STAGGER_HOME"`
	DataDir  string `env:"STAGGER_DATA_DIR"`
	HTTPPort int    `env:"STAGGER_HTTP_PORT"`
	AMQPPort int    `env:"STAGGER_AMQP_PORT"`
	HTTPURL  string `env:"STAGGER_HTTP_URL"`
	AMQPURL  string `env:"STAGGER_AMQP_URL"`
}

func (c *Config) applyDefaults() error {
	if c.Home == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving default STAGGER_HOME: %w", err)
		}

		c.Home = wd
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving default STAGGER_DATA_DIR: %w", err)
		}

		c.DataDir = filepath.Join(home, defaultDataDirName)
	}

	if c.HTTPPort == 0 {
		c.HTTPPort = defaultHTTPPort
	}

	if c.AMQPPort == 0 {
		c.AMQPPort = defaultAMQPPort
	}

	if c.HTTPURL == "" {
		c.HTTPURL = fmt.Sprintf("http://localhost:%d", c.HTTPPort)
	}

	if c.AMQPURL == "" {
		c.AMQPURL = fmt.Sprintf("amqp://localhost:%d", c.AMQPPort)
	}

	return nil
}

// Options contains optional dependencies that can be injected by callers.
type Options struct {
	Logger mlog.Logger
}

// InitServers builds a Service using default options.
func InitServers() (*Service, error) {
	return InitServersWithOptions(nil)
}

// InitServersWithOptions loads Config from the environment and wires the
// model, event bus, persistence worker, HTTP router, and AMQP server into a
// runnable Service.
func InitServersWithOptions(opts *Options) (*Service, error) {
	cfg := &Config{}

	if err := platform.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment variables: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	var logger mlog.Logger
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	}

	if logger == nil {
		return nil, fmt.Errorf("no logger supplied")
	}

	m := model.New(model.Config{HTTPURL: cfg.HTTPURL, AMQPURL: cfg.AMQPURL})

	dataFile := filepath.Join(cfg.DataDir, "data.json")
	if err := m.Load(dataFile); err != nil {
		return nil, fmt.Errorf("failed to load data file %s: %w", dataFile, err)
	}

	bus := eventbus.New(256)
	m.SetPublisher(bus)

	httpApp := httpapi.NewRouter(logger, m, cfg.Home)
	httpServer := NewServer(cfg, httpApp, logger)

	amqp := amqpserver.New("0.0.0.0", cfg.AMQPPort, bus, logger)

	worker := persistence.New(m, dataFile, logger)

	return &Service{
		HTTPServer: httpServer,
		AMQPServer: amqp,
		Worker:     worker,
		Logger:     logger,
	}, nil
}
