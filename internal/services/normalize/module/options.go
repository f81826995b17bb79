package module

import "ratelake/internal/platform/config"

// Options holds configuration options for the normalize service
type Options struct {
	BronzeRoot string
	SilverRoot string
}

// FromConfig reads the normalize options from config with CORE_NORMALIZE_ prefix
func FromConfig(cfg config.Conf) Options {
	nc := cfg.Prefix("CORE_NORMALIZE_")
	return Options{
		BronzeRoot: nc.MayString("BRONZE_ROOT", "data/bronze"),
		SilverRoot: nc.MayString("SILVER_ROOT", "data/silver"),
	}
}
