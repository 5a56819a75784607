package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesStructuredField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := New(zap.New(core))

	log.InfoObj("channel mined", "channel_meta", map[string]any{"channel_id": "UC1", "videos": 3})
	log.DebugObj("debug", "k", 1)
	log.WarnObj("warn", "k", 2)
	log.ErrorObj("error", "k", 3)

	if logs.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "channel mined" {
		t.Fatalf("unexpected message %q", entry.Message)
	}
	meta, ok := entry.ContextMap()["channel_meta"].(map[string]any)
	if !ok || meta["channel_id"] != "UC1" {
		t.Fatalf("unexpected context %#v", entry.ContextMap())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v want %v", in, got, want)
		}
	}
}

func TestEnsureReturnsNop(t *testing.T) {
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("expected NopLogger for nil input")
	}
	zl := New(nil)
	if Ensure(zl) != Logger(zl) {
		t.Fatalf("expected Ensure to keep a non-nil logger")
	}
}

func TestPackageDebugObjUsesInitLogger(t *testing.T) {
	prev := S
	defer func() { S = prev }()

	S = nil
	DebugObj("ignored", "k", 1)

	core, logs := observer.New(zapcore.DebugLevel)
	S = zap.New(core).Sugar()
	DebugObj("config loaded", "config", map[string]any{"log_level": "debug"})

	if logs.Len() != 1 || logs.All()[0].Message != "config loaded" {
		t.Fatalf("expected one debug entry, got %#v", logs.All())
	}
	if _, ok := logs.All()[0].ContextMap()["config"]; !ok {
		t.Fatalf("config field missing")
	}
}
