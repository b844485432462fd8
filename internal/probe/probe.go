// Package probe runs independent power-supply diagnostics and renders their
// raw results. Every step is best effort: a failure is recorded as text in the
// report and never stops the steps after it.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Step is a single diagnostic. Name doubles as the log topic for the step.
type Step interface {
	Name() string
	// Header is printed before the step body, or "" for none.
	Header() string
	Run(ctx context.Context, logger *slog.Logger) (string, error)
}

// Result is the outcome of one step.
type Result struct {
	Step       string `json:"step"`
	Header     string `json:"header,omitempty"`
	Output     string `json:"output"`
	Error      string `json:"error,omitempty"`
	OK         bool   `json:"ok"`
	DurationMS int64  `json:"duration_ms"`
}

// Body returns the text printed for the result: the output on success,
// otherwise the error text.
func (r Result) Body() string {
	if r.OK {
		return r.Output
	}
	return r.Error
}

// Report holds the results of a probe run in step order.
type Report struct {
	ID        int64    `json:"id,omitempty"`
	Timestamp int64    `json:"timestamp"`
	Results   []Result `json:"results"`
}

// Failed returns the number of steps that did not succeed.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK {
			n++
		}
	}
	return n
}

// WriteText prints the report the way the probe shows it on a terminal: the
// header line if the step has one, then the body followed by a newline.
func (r *Report) WriteText(w io.Writer) error {
	for _, res := range r.Results {
		if res.Header != "" {
			if _, err := fmt.Fprintln(w, res.Header); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, res.Body()); err != nil {
			return err
		}
	}
	return nil
}

// Run executes steps sequentially and collects one result per step.
func Run(ctx context.Context, steps []Step, logger *slog.Logger) *Report {
	report := &Report{Timestamp: time.Now().Unix()}
	for _, s := range steps {
		stepLog := logger.With("topic", s.Name())
		start := time.Now()
		out, err := runStep(ctx, s, stepLog)
		res := Result{
			Step:       s.Name(),
			Header:     s.Header(),
			Output:     out,
			OK:         err == nil,
			DurationMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			res.Output = ""
			res.Error = err.Error()
			stepLog.Debug("step failed", "err", err)
		} else {
			stepLog.Debug("step done", "bytes", len(out), "duration_ms", res.DurationMS)
		}
		report.Results = append(report.Results, res)
	}
	return report
}

func runStep(ctx context.Context, s Step, logger *slog.Logger) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", s.Name(), r)
		}
	}()
	return s.Run(ctx, logger)
}
