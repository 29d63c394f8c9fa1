package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/chushaku/data/db/journal.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/chushaku/data/indices/bleve"
	}
	if cfg.Annotate.Author == "" {
		cfg.Annotate.Author = "Chushaku"
	}
	if cfg.Annotate.Initials == "" {
		cfg.Annotate.Initials = "CK"
	}
	if cfg.Annotate.BodyTemplate == "" {
		cfg.Annotate.BodyTemplate = "Found {phrase}"
	}
	if cfg.Annotate.OutputSuffix == "" {
		cfg.Annotate.OutputSuffix = ".annotated"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".docx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
