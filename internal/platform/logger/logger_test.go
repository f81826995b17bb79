package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	kit "ratelake/internal/platform/testkit"
)

func TestParseLevel_AllBranches(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"trace", "trace"},
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"fatal", "fatal"},
		{"panic", "panic"},
		{"", "debug"},
		{"   nonsense   ", "debug"},
	}
	for _, c := range cases {
		lvl := parseLevel(c.in)
		if strings.ToLower(lvl.String()) != c.want {
			t.Fatalf("parseLevel(%q) = %q, want %q", c.in, lvl, c.want)
		}
	}
}

func TestInit_Get_Named_C_WithRun(t *testing.T) {
	var buf bytes.Buffer

	Init(Options{
		Level:     "info",
		Format:    "console",
		Service:   "svc-a",
		Component: "root",
		Writer:    &buf,
		StaticFields: map[string]string{
			"build": "test",
		},
	})

	Get().Info().Str("k", "v").Msg("root-msg")
	Named("consolidate").Info().Msg("named-msg")

	ctx := WithRun(context.Background(), "run-123", "2025-11-08")
	ctx = WithSource(ctx, "klar")
	C(ctx).Info().Msg("ctx-msg")

	// empty ctx child still logs, just without run fields
	C(context.Background()).Info().Msg("ctx-empty")

	out := buf.String()

	kit.MustContain(t, out, "root-msg")
	kit.MustContain(t, out, "named-msg")
	kit.MustContain(t, out, "ctx-msg")
	kit.MustContain(t, out, "ctx-empty")
	kit.MustContain(t, out, "component=")
	kit.MustContain(t, out, "run-123")
	kit.MustContain(t, out, "2025-11-08")
	kit.MustContain(t, out, "klar")
	kit.MustContain(t, out, "build=")
}

func TestWithRun_EmptyValuesAreNotAttached(t *testing.T) {
	ctx := WithRun(context.Background(), "", "")
	if ctx.Value(keyRunID) != nil || ctx.Value(keyRunDT) != nil {
		t.Fatalf("empty run fields must not be stored")
	}
	ctx = WithSource(ctx, "")
	if ctx.Value(keySource) != nil {
		t.Fatalf("empty source must not be stored")
	}
}
