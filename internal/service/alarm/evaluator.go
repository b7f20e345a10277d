package alarm

import (
	"context"
	"sync"

	"github.com/oshokin/climate-alarm/internal/domain/climate"
	"github.com/oshokin/climate-alarm/internal/logger"
)

// Beeper starts a buzzer pattern without waiting for it.
type Beeper interface {
	Beep(count int)
}

// Evaluator compares readings against thresholds and keeps the alarm flags.
type Evaluator struct {
	thresholds climate.Thresholds
	beeper     Beeper

	mu    sync.Mutex
	state climate.AlarmState
}

// NewEvaluator creates an evaluator with both flags cleared.
func NewEvaluator(thresholds climate.Thresholds, beeper Beeper) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
		beeper:     beeper,
	}
}

// Evaluate checks r and starts at most one pattern. It reports which quantity
// triggered, if any.
func (e *Evaluator) Evaluate(ctx context.Context, r climate.Reading) (climate.Quantity, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.check(ctx, climate.Temperature, r.Temperature >= e.thresholds.Temperature, &e.state.TemperatureAlarm) {
		return climate.Temperature, true
	}

	if e.check(ctx, climate.Humidity, r.Humidity >= e.thresholds.Humidity, &e.state.HumidityAlarm) {
		return climate.Humidity, true
	}

	return 0, false
}

// State returns a copy of the flags.
func (e *Evaluator) State() climate.AlarmState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

func (e *Evaluator) check(ctx context.Context, q climate.Quantity, isAlarm bool, flag *bool) bool {
	runBeep := isAlarm && !*flag
	*flag = isAlarm

	if !runBeep {
		return false
	}

	logger.WarnKV(ctx, "Threshold exceeded", "quantity", q.String(), "beeps", q.BeepCount())

	e.beeper.Beep(q.BeepCount())
	*flag = false

	return true
}
