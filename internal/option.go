package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config          *Config
	mcp             bool
	projectOverride string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithProjectPath overrides the project path from both the YAML config and
// config.ini (e.g. a CLI flag).
func WithProjectPath(path string) Option {
	return func(a *application) {
		a.projectOverride = path
	}
}

// WithMCP switches the application into MCP stdio server mode instead of
// serving HTTP.
func WithMCP() Option {
	return func(a *application) {
		a.mcp = true
	}
}
