package ch

import (
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// clientInfo identifies the connecting process in the server's query log.
// Role names the binary's job ("consolidate", "backfill").
func clientInfo(role string) clickhouse.ClientInfo {
	host, _ := os.Hostname()

	add := func(ci *clickhouse.ClientInfo, name, version string) {
		ci.Products = append(ci.Products, struct{ Name, Version string }{
			Name:    name,
			Version: strings.TrimSpace(version),
		})
	}

	var ci clickhouse.ClientInfo
	add(&ci, "ratelake", role)
	add(&ci, "go", runtime.Version())
	add(&ci, "commit", buildRevision())
	add(&ci, "host", host)
	return ci
}

func buildRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return "unknown"
}
