package module

import (
	"time"

	"ratelake/internal/platform/config"
)

// Options holds configuration options for the consolidate service
type Options struct {
	GoldTable       string
	RegisterRetries int
	RetryBase       time.Duration
	Workers         int
	MaxRangeDays    int
	Leases          bool
	DryRun          bool

	// SilverRoot is the lakehouse silver layer root directory
	SilverRoot string
}

// FromConfig reads the consolidate options from config with CORE_CONSOLIDATE_ prefix
func FromConfig(cfg config.Conf) Options {
	cc := cfg.Prefix("CORE_CONSOLIDATE_")
	return Options{
		GoldTable:       cc.MayString("GOLD_TABLE", "fact_rates"),
		RegisterRetries: cc.MayInt("REGISTER_RETRIES", 3),
		RetryBase:       cc.MayDuration("RETRY_BASE", 500*time.Millisecond),
		Workers:         cc.MayInt("WORKERS", 2),
		MaxRangeDays:    cc.MayInt("MAX_RANGE_DAYS", 0),
		Leases:          cc.MayBool("LEASES", true),
		DryRun:          cc.MayBool("DRY_RUN", false),
		SilverRoot:      cc.MayString("SILVER_ROOT", "data/silver"),
	}
}
