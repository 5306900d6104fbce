package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName is the otelslog scope name.
const InstrumentationName = "markerlab"

var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager owns the process slog.Logger. Records fan out to a text handler
// and, once Setup is given an SDK provider, to the otelslog bridge.
type SlogManager struct {
	logger   *slog.Logger
	contextF ContextProvider
	otelLogs *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case, with optional offsets
// such as "debug+2". Anything else is info.
func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// SetContextProvider registers attributes that are added to every record,
// such as the active storage backend. Takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.contextF = p
}

// Setup initializes the logging system. Records go to out when one is given,
// otherwise to stdout, and to OTel when provider is non-nil. Attributes
// attached to a context with WithAttrs are added to records logged with it.
func (m *SlogManager) Setup(out io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.otelLogs = provider
	if out == nil {
		out = osStdout
	}

	text := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: utcTime,
	})
	var bridge slog.Handler
	if provider != nil {
		bridge = otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider))
	}

	m.logger = slog.New(newContextHandler(newFanout(text, bridge), m.contextF))
	m.logger.Debug("logger ready", "level", parseLevel(level).String(), "otel", provider != nil)
}

// utcTime renders record times as RFC 3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records to their exporters.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.otelLogs == nil {
		return nil
	}
	return m.otelLogs.ForceFlush(ctx)
}

// WriteLog writes a log entry tagged with the calling function name.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
