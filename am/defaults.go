package am

import (
	"github.com/spf13/viper"

	"github.com/teranos/taxa/internal/util"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "taxa.db")
	v.SetDefault("database.badger_dir", "taxa.badger")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.service", DefaultService)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})
	v.SetDefault("server.requests_per_second", 0) // unlimited
	v.SetDefault("server.burst", 50)

	// Pagination defaults
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("search.max_limit", 1000)

	v.SetDefault("namespaces", DefaultNamespaces())
}

// DefaultNamespaces returns the three reference namespaces, all served from SQLite.
func DefaultNamespaces() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"id":           "ncbi_taxonomy",
			"backend":      BackendSQLite,
			"name_field":   "scientific_name",
			"has_rank":     true,
			"has_strains":  true,
			"cache_size":   4096,
			"associations": true,
		},
		{
			"id":         "gtdb",
			"backend":    BackendSQLite,
			"name_field": "scientific_name",
			"has_rank":   true,
			"cache_size": 4096,
		},
		{
			"id":         "rdp_taxonomy",
			"backend":    BackendSQLite,
			"name_field": "name",
			"cache_size": 4096,
		},
	}
}

// BindSensitiveEnvVars explicitly binds deployment-specific configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "TAXA_DATABASE_PATH")
	v.BindEnv("database.badger_dir", "TAXA_DATABASE_BADGER_DIR")
	v.BindEnv("server.port", "TAXA_SERVER_PORT")
}

// GetServerPort returns the configured port, or DefaultServerPort if unset
func (c *Config) GetServerPort() int {
	return util.Deref(c.Server.Port, DefaultServerPort)
}

// GetService returns the RPC method prefix
func (c *Config) GetService() string {
	if c.Server.Service == "" {
		return DefaultService
	}
	return c.Server.Service
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "taxa.db"
	}
	return c.Database.Path
}

// GetServerAllowedOrigins returns the allowed CORS origins
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return []string{"http://localhost", "http://127.0.0.1"}
	}
	return c.Server.AllowedOrigins
}

// UsesBackend reports whether any namespace is served by backend.
func (c *Config) UsesBackend(backend string) bool {
	for _, ns := range c.Namespaces {
		if ns.Backend == backend {
			return true
		}
	}
	return false
}
