package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	kit "maudeflow/internal/platform/testkit"
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
		Service:   "maudeflow-pipeline",
		Component: "root",
		Writer:    &buf,
		StaticFields: map[string]string{
			"build": "test",
		},
	})

	Get().Info().Str("k", "v").Msg("root-msg")
	Named("partition").Info().Msg("named-msg")

	ctx := WithRun(context.Background(), "run-123")
	ctx = WithStage(ctx, "join")
	ctx = WithShard(ctx, 7)
	C(ctx).Info().Msg("ctx-msg")

	// background child carries no extra fields
	C(context.Background()).Info().Msg("ctx-empty")

	out := buf.String()

	kit.MustContain(t, out, "root-msg")
	kit.MustContain(t, out, "named-msg")
	kit.MustContain(t, out, "partition")
	kit.MustContain(t, out, "ctx-msg")
	kit.MustContain(t, out, "run-123")
	kit.MustContain(t, out, "join")
	kit.MustContain(t, out, "ctx-empty")
}

func TestWith_EmptyValuesLeaveCtxUntouched(t *testing.T) {
	ctx := context.Background()
	if got := WithRun(ctx, ""); got != ctx {
		t.Fatalf("WithRun(\"\") must return ctx unchanged")
	}
	if got := WithStage(ctx, ""); got != ctx {
		t.Fatalf("WithStage(\"\") must return ctx unchanged")
	}
	if got := WithShard(ctx, -1); got != ctx {
		t.Fatalf("WithShard(-1) must return ctx unchanged")
	}
}
