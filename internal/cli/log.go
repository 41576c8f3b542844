package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/banshee-data/channelfit/internal/timeutil"
)

// newLogger creates a leveled logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

func parseLevel(s string) (charmlog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return charmlog.InfoLevel, nil
	case "debug":
		return charmlog.DebugLevel, nil
	case "warn", "warning":
		return charmlog.WarnLevel, nil
	case "error":
		return charmlog.ErrorLevel, nil
	}
	return charmlog.InfoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// progress logs elapsed time for one operation.
type progress struct {
	logger *charmlog.Logger
	clock  timeutil.Clock
	start  time.Time
}

func newProgress(l *charmlog.Logger, c timeutil.Clock) *progress {
	return &progress{logger: l, clock: c, start: c.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, p.clock.Since(p.start).Round(time.Millisecond))
}

// stepReporter returns a sampler callback that logs every tenth of the
// run.
func stepReporter(l *charmlog.Logger) func(done, total int) {
	next := 10
	return func(done, total int) {
		pct := 100 * done / max(total, 1)
		if pct < next && done != total {
			return
		}
		l.Infof("sampling %d/%d steps (%d%%)", done, total, pct)
		next = pct/10*10 + 10
	}
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *charmlog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext falls back to the package default logger.
func loggerFromContext(ctx context.Context) *charmlog.Logger {
	if l, ok := ctx.Value(loggerKey).(*charmlog.Logger); ok {
		return l
	}
	return charmlog.Default()
}
