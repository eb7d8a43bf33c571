// ABOUTME: Reporter drains an event subscription into structured log lines - round and
// ABOUTME: statistics events at info, per-agent lifecycle steps at debug.
package logging

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/arbiter/events"
)

// Reporter logs every event it receives.
type Reporter struct {
	log logrus.FieldLogger
}

// NewReporter creates a Reporter writing to log.
func NewReporter(log logrus.FieldLogger) *Reporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reporter{log: log}
}

// Run logs events from sub until it is closed or ctx is done.
func (r *Reporter) Run(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			r.Report(e)
		}
	}
}

// Report logs a single event.
func (r *Reporter) Report(e events.Event) {
	fields := logrus.Fields{"event": string(e.Type)}
	if e.Agent > 0 {
		fields["agent"] = e.Agent
	}
	switch {
	case e.Type == events.FinalMeanWaitTime:
		fields["rounds"] = e.Round
	case e.Round > 0:
		fields["round"] = e.Round
	}
	entry := r.log.WithFields(fields)

	switch e.Type {
	case events.RoundWaitTime:
		entry.WithField("wait", e.Duration).Info("Round wait time")
	case events.FinalMeanWaitTime:
		entry.WithField("mean_wait", e.Duration).Info("Final mean wait time")
	case events.OverallMeanWaitTime:
		entry.WithField("mean_wait", e.Duration).Info("Overall mean wait time")
	case events.RoundStarted:
		entry.Info("Round started")
	case events.RoundCompleted:
		entry.Info("Round completed")
	default:
		entry.Debug(e.String())
	}
}
