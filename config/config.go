package config

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"os"
	"slices"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/gtonic/resumebot/pkg/authorizer"
	"github.com/gtonic/resumebot/pkg/blob"
	"github.com/gtonic/resumebot/pkg/connector"
	"github.com/gtonic/resumebot/pkg/history"
	"github.com/gtonic/resumebot/pkg/index"
	"github.com/gtonic/resumebot/pkg/indexer"
	"github.com/gtonic/resumebot/pkg/ingest"
	"github.com/gtonic/resumebot/pkg/marker"
	"github.com/gtonic/resumebot/pkg/memory"
	"github.com/gtonic/resumebot/pkg/provider"
	"github.com/gtonic/resumebot/pkg/refresh"
	"github.com/gtonic/resumebot/pkg/vote"
)

// Set at build time with -ldflags "-X".
var (
	Version     = "0.1.12"
	ReleaseDate = "June 27, 2023"
)

type Config struct {
	Address string

	Authorizers []authorizer.Provider

	models    map[string]string
	completer map[string]provider.Completer
	embedder  map[string]provider.Embedder

	indexEmbedder string

	Markers marker.Provider
	History history.Provider
	Votes   vote.Provider

	Blobs        blob.Provider
	SourceBucket string
	IndexBucket  string

	Directory   *index.Directory
	Indexer     *indexer.Indexer
	Coordinator *refresh.Coordinator

	Pipeline *ingest.Pipeline

	Recorder *memory.Recorder

	backends map[string]*Backend

	connectors map[string]connector.Provider

	CORSOrigins []string

	MCP       bool
	WebSocket bool

	closers []func() error
}

func (c *Config) RegisterConnector(id string, p connector.Provider) {
	if c.connectors == nil {
		c.connectors = make(map[string]connector.Provider)
	}

	c.connectors[id] = p
}

func (c *Config) Connector(id string) (connector.Provider, error) {
	if c.connectors != nil {
		if p, ok := c.connectors[id]; ok {
			return p, nil
		}
	}

	return nil, errors.New("connector not found: " + id)
}

// AllConnectors returns a copy of the registered connectors.
func (c *Config) AllConnectors() map[string]connector.Provider {
	return maps.Clone(c.connectors)
}

// Close releases the database and storage clients.
func (c *Config) Close() error {
	var errs []error

	for _, close := range slices.Backward(c.closers) {
		errs = append(errs, close())
	}

	return errors.Join(errs...)
}

// Load reads .env files into the environment, ignoring missing ones.
func Load(files ...string) {
	var present []string

	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}

	if len(present) == 0 {
		return
	}

	godotenv.Load(present...)
}

func Parse(path string) (*Config, error) {
	file, err := parseFile(path)

	if err != nil {
		return nil, err
	}

	c := &Config{
		Address: ":8080",
	}

	ctx := context.Background()

	if err := c.registerAuthorizer(ctx, file); err != nil {
		return nil, err
	}

	if err := c.registerProviders(file); err != nil {
		return nil, err
	}

	if err := c.registerStorage(ctx, file); err != nil {
		return nil, err
	}

	if err := c.registerBlob(ctx, file); err != nil {
		return nil, err
	}

	if err := c.registerIndex(file); err != nil {
		return nil, err
	}

	if err := c.registerManager(file); err != nil {
		return nil, err
	}

	if err := c.registerHistory(file); err != nil {
		return nil, err
	}

	if err := c.registerBackends(ctx, file); err != nil {
		return nil, err
	}

	if err := c.registerConnectors(file); err != nil {
		return nil, err
	}

	if err := c.registerServer(file); err != nil {
		return nil, err
	}

	return c, nil
}

type configFile struct {
	Authorizers []authorizerConfig `yaml:"authorizers"`

	Providers []providerConfig `yaml:"providers"`

	Storage *storageConfig `yaml:"storage"`
	Blob    *blobConfig    `yaml:"blob"`

	Index   *indexConfig   `yaml:"index"`
	Manager *managerConfig `yaml:"manager"`
	History *historyConfig `yaml:"history"`

	Backends map[string]backendConfig `yaml:"backends"`

	Connectors yaml.Node `yaml:"connectors,omitempty"`

	Server *serverConfig `yaml:"server"`
}

func parseFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	data = []byte(os.ExpandEnv(string(data)))

	var config configFile

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func createLimiter(limit *int) *rate.Limiter {
	if limit == nil {
		return nil
	}

	return rate.NewLimiter(rate.Limit(*limit), *limit)
}

func boolValue(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}

	return *v
}
