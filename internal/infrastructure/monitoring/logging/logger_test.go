package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Helper to create a logger that writes to a buffer for verification
func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core)}, buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json", Output: "stdout"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "verbose"})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewLogger_InvalidOutput(t *testing.T) {
	l, err := NewLogger(LogConfig{Output: "syslog"})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewLogger_NoSinksIsNop(t *testing.T) {
	l, err := NewLogger(LogConfig{Output: "none"})
	require.NoError(t, err)
	assert.Equal(t, NewNopLogger(), l)
}

func TestNewLogger_RotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.log")
	l, err := NewLogger(LogConfig{Output: "none", File: FileConfig{Path: path, MaxSizeMB: 1}})
	require.NoError(t, err)

	l.Info("filter complete", String(FieldCalculator, "epi"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"calculator":"epi"`)
	assert.Contains(t, string(data), "filter complete")
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	l.Debug("msg")
	l.Info("msg")
	l.Warn("msg")
	l.Error("msg")
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
	assert.Equal(t, l, l.WithContext(context.Background()))
	assert.NoError(t, l.Sync())
}

func TestZapLogger_LevelsWrite(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Debug("debug msg")
	l.Info("info msg")
	l.Warn("warn msg")
	l.Error("error msg")

	out := buf.String()
	for _, msg := range []string{"debug msg", "info msg", "warn msg", "error msg"} {
		assert.Contains(t, out, msg)
	}
}

func TestZapLogger_TypedFields(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Info("fields",
		String("s", "v"),
		Strings("actions", []string{"removeExplicitH", "transform"}),
		Int("i", 3),
		Float64("mass", 180.16),
		Bool("valid", true),
		Err(errors.New("boom")),
	)

	out := buf.String()
	assert.Contains(t, out, `"s":"v"`)
	assert.Contains(t, out, `"actions":["removeExplicitH","transform"]`)
	assert.Contains(t, out, `"i":3`)
	assert.Contains(t, out, `"mass":180.16`)
	assert.Contains(t, out, `"valid":true`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestZapLogger_WithContext_ExtractsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	l.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()[FieldRequestID])
}

func TestZapLogger_WithContext_NoRequestID(t *testing.T) {
	l, _ := newTestLogger(t)
	assert.Same(t, l, l.WithContext(context.Background()))
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, _ := newTestLogger(t)
	SetDefault(l)
	assert.Same(t, l, Default())

	SetDefault(nil)
	assert.Same(t, l, Default())
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.log")
	l, err := NewLogger(LogConfig{Level: LevelWarn, Output: "none", File: FileConfig{Path: path}})
	require.NoError(t, err)
	child := l.Named("jchem")

	child.Info("before")
	require.NoError(t, SetLevel(l, LevelDebug))
	child.Debug("after")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "before")
	assert.Contains(t, string(data), "after")

	assert.Error(t, SetLevel(l, "loud"))
	assert.NoError(t, SetLevel(NewNopLogger(), LevelDebug))
}
