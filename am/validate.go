package am

import "github.com/teranos/taxa/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && (*c.Server.Port < 0 || *c.Server.Port > 65535) {
		return errors.Newf("server.port must be in 1..65535, got %d", *c.Server.Port)
	}

	// Rate limit: 0 = unlimited, negative = invalid
	if c.Server.RequestsPerSecond < 0 {
		return errors.Newf("server.requests_per_second must be >= 0, got %v", c.Server.RequestsPerSecond)
	}
	if c.Server.RequestsPerSecond > 0 && c.Server.Burst < 1 {
		return errors.Newf("server.burst must be >= 1 when rate limiting is enabled, got %d", c.Server.Burst)
	}

	// Pagination: zero takes the built-in default
	if c.Search.DefaultLimit < 0 {
		return errors.Newf("search.default_limit must be >= 0, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < 0 {
		return errors.Newf("search.max_limit must be >= 0, got %d", c.Search.MaxLimit)
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return errors.Newf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}

	seen := make(map[string]bool, len(c.Namespaces))
	for i, ns := range c.Namespaces {
		if ns.ID == "" {
			return errors.Newf("namespaces[%d].id is required", i)
		}
		if seen[ns.ID] {
			return errors.Newf("namespace %q configured twice", ns.ID)
		}
		seen[ns.ID] = true
		if err := ns.validate(c); err != nil {
			return errors.Wrapf(err, "namespace %q", ns.ID)
		}
	}
	return nil
}

func (ns NamespaceConfig) validate(c *Config) error {
	switch ns.Backend {
	case BackendSQLite:
		if c.Database.Path == "" {
			return errors.New("sqlite backend requires database.path")
		}
	case BackendBadger:
		if c.Database.BadgerDir == "" {
			return errors.New("badger backend requires database.badger_dir")
		}
	case BackendMemory:
		if ns.Dataset == "" {
			return errors.New("memory backend requires a dataset file")
		}
	case "":
		return errors.New("backend is required")
	default:
		return errors.WithHintf(errors.Newf("unknown backend %q", ns.Backend),
			"use one of %s, %s, %s", BackendSQLite, BackendBadger, BackendMemory)
	}

	switch ns.NameField {
	case "", "scientific_name", "name":
	default:
		return errors.Newf("name_field must be scientific_name or name, got %q", ns.NameField)
	}
	if ns.HasStrains && !ns.HasRank {
		return errors.New("has_strains requires has_rank")
	}
	if ns.CacheSize < 0 {
		return errors.Newf("cache_size must be >= 0, got %d", ns.CacheSize)
	}
	return nil
}
