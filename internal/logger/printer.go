package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Printer adapts a zap logger to the Println/Printf interface used by
// libraries such as the paho MQTT client.
type Printer struct {
	log   *zap.SugaredLogger
	level zapcore.Level
}

// NewPrinter returns a Printer that writes every line at lvl through the
// context logger, regardless of the shared level.
func NewPrinter(ctx context.Context, lvl zapcore.Level) *Printer {
	l := FromContext(ctx).Desugar().WithOptions(WithLevel(lvl), zap.AddCallerSkip(1)).Sugar()

	return &Printer{log: l, level: lvl}
}

// Println logs the operands joined by spaces.
func (p *Printer) Println(v ...any) {
	p.write(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf logs a formatted line.
func (p *Printer) Printf(format string, v ...any) {
	p.write(fmt.Sprintf(format, v...))
}

func (p *Printer) write(msg string) {
	p.log.Logw(p.level, msg)
}
