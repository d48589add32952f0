package mipcore

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with solver-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogIncumbent logs acceptance of a new incumbent solution.
func (l *Logger) LogIncumbent(ctx context.Context, objective float64, source SolutionSource) {
	l.InfoContext(ctx, "new incumbent",
		"objective", objective,
		"source", source.String(),
	)
}

// LogRepairFailure logs a solution that stayed infeasible after the one
// permitted repair attempt, with the violation maxima and worst offenders.
func (l *Logger) LogRepairFailure(ctx context.Context, objective, boundViol, intViol, rowViol float64, worstCol, worstIntCol, worstRow string) {
	l.WarnContext(ctx, "solution has untransformed violations",
		"objective", objective,
		"bound_violation", boundViol,
		"integrality_violation", intViol,
		"row_violation", rowViol,
		"worst_col", worstCol,
		"worst_int_col", worstIntCol,
		"worst_row", worstRow,
	)
}

// LogRestart logs a presolve-triggered restart.
func (l *Logger) LogRestart(ctx context.Context, fixingRate float64, numRestarts int) {
	l.InfoContext(ctx, "inactive integer columns, restarting",
		"fixing_rate_pct", fixingRate,
		"num_restarts", numRestarts,
	)
}

// LogSymmetryDetection logs the outcome of a symmetry detection run.
func (l *Logger) LogSymmetryDetection(ctx context.Context, detectionTime time.Duration, sym Symmetries) {
	if sym.NumGenerators == 0 {
		l.InfoContext(ctx, "no symmetry present", "detection_time", detectionTime)
		return
	}
	l.InfoContext(ctx, "symmetry detection completed",
		"detection_time", detectionTime,
		"generators", sym.NumGenerators,
		"orbitopes", len(sym.Orbitopes),
		"orbitope_cols", sym.NumOrbitopeCols,
	)
}

// LogAnalyticCenterFixing logs columns fixed at a bound by the analytic
// center result.
func (l *Logger) LogAnalyticCenterFixing(ctx context.Context, numFixed, numIntFixed int) {
	l.InfoContext(ctx, "fixing columns sitting at bound at analytic center",
		"fixed", numFixed,
		"integers_fixed", numIntFixed,
	)
}

// LogModelSizes logs the model dimensions at setup time.
func (l *Logger) LogModelSizes(ctx context.Context, restarted bool, numRow, numCol, numBin, numInt, numImplied, numCont, numNonzero int) {
	msg := "solving MIP model"
	if restarted {
		msg = "model after restart"
	}
	l.InfoContext(ctx, msg,
		"rows", numRow,
		"cols", numCol,
		"binary", numBin,
		"integer", numInt,
		"implied_integer", numImplied,
		"continuous", numCont,
		"nonzeros", numNonzero,
	)
}

// LogTerminal logs the terminal model status.
func (l *Logger) LogTerminal(ctx context.Context, status ModelStatus, reason string) {
	l.DebugContext(ctx, reason, "status", status.String())
}
