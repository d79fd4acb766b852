package server

import (
	"github.com/teranos/taxa/am"
	"github.com/teranos/taxa/logger"
)

// WatchConfig reloads the request budget whenever configPath changes.
// Other settings take effect on restart.
func (s *Server) WatchConfig(configPath string) error {
	if configPath == "" {
		s.logger.Infow("No config file found, using defaults (config watching disabled)")
		return nil
	}

	watcher, err := am.NewConfigWatcher(configPath)
	if err != nil {
		return err
	}
	am.SetGlobalWatcher(watcher)

	watcher.OnReload(s.applyConfig)

	s.mu.Lock()
	s.configWatcher = watcher
	s.mu.Unlock()

	watcher.Start()
	s.logger.Infow("Config watcher started", logger.FieldPath, configPath)
	return nil
}

// applyConfig is the reload callback; only hot-reloadable settings are read.
func (s *Server) applyConfig(cfg *am.Config) error {
	s.SetRateLimit(cfg.Server.RequestsPerSecond, cfg.Server.Burst)
	s.logger.Infow("Config reloaded, updated request budget",
		"requests_per_second", cfg.Server.RequestsPerSecond,
		"burst", cfg.Server.Burst,
	)
	return nil
}
