package am

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/taxa/internal/util"
)

func TestLoad_Defaults(t *testing.T) {
	// Isolated viper instance without user/system config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "taxa.db", cfg.Database.Path)
	assert.Equal(t, DefaultServerPort, cfg.GetServerPort())
	assert.Equal(t, DefaultService, cfg.GetService())
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 1000, cfg.Search.MaxLimit)
	assert.Zero(t, cfg.Server.RequestsPerSecond)

	require.Len(t, cfg.Namespaces, 3)
	ncbi, ok := cfg.Namespace("ncbi_taxonomy")
	require.True(t, ok)
	assert.Equal(t, BackendSQLite, ncbi.Backend)
	assert.True(t, ncbi.HasRank)
	assert.True(t, ncbi.HasStrains)
	assert.True(t, ncbi.Associations)

	rdp, ok := cfg.Namespace("rdp_taxonomy")
	require.True(t, ok)
	assert.Equal(t, "name", rdp.NameField)
	assert.False(t, rdp.HasRank)

	_, ok = cfg.Namespace("silva")
	assert.False(t, ok)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.UsesBackend(BackendSQLite))
	assert.False(t, cfg.UsesBackend(BackendBadger))
}

func TestGetters_ZeroConfig(t *testing.T) {
	var cfg Config
	assert.Equal(t, DefaultServerPort, cfg.GetServerPort())
	assert.Equal(t, DefaultService, cfg.GetService())
	assert.Equal(t, "taxa.db", cfg.GetDatabasePath())
	assert.NotEmpty(t, cfg.GetServerAllowedOrigins())

	cfg.Server.Port = util.Ptr(8080)
	assert.Equal(t, 8080, cfg.GetServerPort())
}

func TestValidate(t *testing.T) {
	sqliteNS := func(id string) NamespaceConfig {
		return NamespaceConfig{ID: id, Backend: BackendSQLite, HasRank: true}
	}
	base := func() Config {
		return Config{
			Database:   DatabaseConfig{Path: "taxa.db", BadgerDir: "taxa.badger"},
			Namespaces: []NamespaceConfig{sqliteNS("ncbi_taxonomy")},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "base config is valid", mutate: func(*Config) {}},
		{
			name:    "zero port is invalid",
			mutate:  func(c *Config) { c.Server.Port = util.Ptr(0) },
			wantErr: "server.port cannot be 0",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = util.Ptr(70000) },
			wantErr: "server.port must be in 1..65535",
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.Server.RequestsPerSecond = -1 },
			wantErr: "requests_per_second",
		},
		{
			name:    "rate without burst",
			mutate:  func(c *Config) { c.Server.RequestsPerSecond = 10 },
			wantErr: "server.burst",
		},
		{
			name: "rate with burst",
			mutate: func(c *Config) {
				c.Server.RequestsPerSecond = 10
				c.Server.Burst = 5
			},
		},
		{
			name:    "negative default limit",
			mutate:  func(c *Config) { c.Search.DefaultLimit = -1 },
			wantErr: "search.default_limit",
		},
		{
			name: "default limit above max",
			mutate: func(c *Config) {
				c.Search.DefaultLimit = 50
				c.Search.MaxLimit = 10
			},
			wantErr: "exceeds search.max_limit",
		},
		{
			name:    "missing namespace id",
			mutate:  func(c *Config) { c.Namespaces = append(c.Namespaces, sqliteNS("")) },
			wantErr: "namespaces[1].id is required",
		},
		{
			name:    "duplicate namespace",
			mutate:  func(c *Config) { c.Namespaces = append(c.Namespaces, sqliteNS("ncbi_taxonomy")) },
			wantErr: "configured twice",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Namespaces[0].Backend = "postgres" },
			wantErr: `unknown backend "postgres"`,
		},
		{
			name:    "missing backend",
			mutate:  func(c *Config) { c.Namespaces[0].Backend = "" },
			wantErr: "backend is required",
		},
		{
			name: "memory backend needs a dataset",
			mutate: func(c *Config) {
				c.Namespaces[0].Backend = BackendMemory
			},
			wantErr: "requires a dataset file",
		},
		{
			name: "badger backend needs a directory",
			mutate: func(c *Config) {
				c.Namespaces[0].Backend = BackendBadger
				c.Database.BadgerDir = ""
			},
			wantErr: "database.badger_dir",
		},
		{
			name:    "bad name field",
			mutate:  func(c *Config) { c.Namespaces[0].NameField = "title" },
			wantErr: "name_field",
		},
		{
			name: "strains without rank",
			mutate: func(c *Config) {
				c.Namespaces[0].HasRank = false
				c.Namespaces[0].HasStrains = true
			},
			wantErr: "has_strains requires has_rank",
		},
		{
			name:    "negative cache size",
			mutate:  func(c *Config) { c.Namespaces[0].CacheSize = -1 },
			wantErr: "cache_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	tests := []struct {
		key      string
		expected interface{}
	}{
		{"database.path", "taxa.db"},
		{"database.badger_dir", "taxa.badger"},
		{"server.port", DefaultServerPort},
		{"server.service", DefaultService},
		{"server.burst", 50},
		{"search.default_limit", 20},
		{"search.max_limit", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.Get(tt.key))
		})
	}
}
