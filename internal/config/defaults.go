package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Walker.MaxDepth == 0 {
		cfg.Walker.MaxDepth = 256
	}
	if cfg.Walker.PreambleTitle == "" {
		cfg.Walker.PreambleTitle = "Preamble"
	}
	if cfg.Index.Backends == nil {
		cfg.Index.Backends = []string{BackendBleve, BackendSQLite}
	}
	if cfg.Index.BleveIndexPath == "" {
		cfg.Index.BleveIndexPath = "/usr/local/var/docindex/data/indices/bleve"
	}
	if cfg.Index.DatabasePath == "" {
		cfg.Index.DatabasePath = "/usr/local/var/docindex/data/db/docindex.db"
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 500
	}
	if cfg.Solr.Timeout == 0 {
		cfg.Solr.Timeout = 30 * time.Second
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
}
