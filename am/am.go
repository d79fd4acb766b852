package am

// Config represents the taxa service configuration
type Config struct {
	Database   DatabaseConfig    `mapstructure:"database" toml:"database"`
	Server     ServerConfig      `mapstructure:"server" toml:"server"`
	Search     SearchConfig      `mapstructure:"search" toml:"search"`
	Namespaces []NamespaceConfig `mapstructure:"namespaces" toml:"namespaces"`
}

// DatabaseConfig configures the on-disk backends
type DatabaseConfig struct {
	Path      string `mapstructure:"path" toml:"path"`             // SQLite file shared by sqlite namespaces
	BadgerDir string `mapstructure:"badger_dir" toml:"badger_dir"` // Badger directory shared by badger namespaces
}

// ServerConfig configures the RPC gateway
type ServerConfig struct {
	Port           *int     `mapstructure:"port" toml:"port,omitempty"` // nil = DefaultServerPort, 0 is invalid
	Service        string   `mapstructure:"service" toml:"service"`     // method prefix, e.g. "taxonomy_re_api"
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`

	// Gateway request budget. 0 requests_per_second disables limiting.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" toml:"burst"`
}

// SearchConfig configures pagination
type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit" toml:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit" toml:"max_limit"`
}

// NamespaceConfig registers one taxonomy namespace
type NamespaceConfig struct {
	ID           string `mapstructure:"id" toml:"id"`
	Backend      string `mapstructure:"backend" toml:"backend"`       // sqlite, badger or memory
	NameField    string `mapstructure:"name_field" toml:"name_field"` // scientific_name or name
	HasRank      bool   `mapstructure:"has_rank" toml:"has_rank"`
	HasStrains   bool   `mapstructure:"has_strains" toml:"has_strains"`
	Release      string `mapstructure:"release" toml:"release,omitempty"`       // semver of the dataset release
	CacheSize    int    `mapstructure:"cache_size" toml:"cache_size,omitempty"` // 0 disables the taxon cache
	Dataset      string `mapstructure:"dataset" toml:"dataset,omitempty"`       // file served by the memory backend
	Associations bool   `mapstructure:"associations" toml:"associations"`       // namespace indexes workspace objects
}

// Backend names
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Server defaults
const (
	DefaultServerPort = 5000
	DefaultService    = "taxonomy_re_api"
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Namespace returns the configuration of namespace id.
func (c *Config) Namespace(id string) (NamespaceConfig, bool) {
	for _, ns := range c.Namespaces {
		if ns.ID == id {
			return ns, true
		}
	}
	return NamespaceConfig{}, false
}
