package config

type serverConfig struct {
	CORSOrigins []string `yaml:"cors_origins"`

	MCP       *bool `yaml:"mcp"`
	WebSocket *bool `yaml:"websocket"`
}

func (c *Config) registerServer(f *configFile) error {
	cfg := f.Server

	if cfg == nil {
		cfg = &serverConfig{}
	}

	c.CORSOrigins = cfg.CORSOrigins

	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}

	c.MCP = boolValue(cfg.MCP, true)
	c.WebSocket = boolValue(cfg.WebSocket, true)

	return nil
}
