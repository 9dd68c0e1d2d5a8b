package validation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "exportcheck/internal/errors"
)

// JobStatus is the status name shown on the export dashboard
type JobStatus string

const (
	JobPending      JobStatus = "Pending"
	JobInProgress   JobStatus = "InProgress"
	JobSuccess      JobStatus = "Success"
	JobUnsuccessful JobStatus = "Unsuccessful"
	JobDeleted      JobStatus = "Deleted"
)

// IsTerminalFailure reports whether the status ends the job without an artifact
func (s JobStatus) IsTerminalFailure() bool {
	return strings.EqualFold(string(s), string(JobDeleted)) ||
		strings.EqualFold(string(s), string(JobUnsuccessful))
}

// IsSuccess reports whether the status is Success
func (s JobStatus) IsSuccess() bool {
	return strings.EqualFold(string(s), string(JobSuccess))
}

// Observation is one parsed reading of the status element
type Observation struct {
	Status  JobStatus `json:"status"`
	Percent int       `json:"percent"`
}

// ParseStatus splits the status text into its label, status and percent
// lines. ok is false when fewer than three lines are present. An unparsable
// percent reads as 0.
func ParseStatus(raw string) (obs Observation, ok bool) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	parts := strings.SplitN(raw, "\n", 3)
	if len(parts) < 3 {
		return Observation{}, false
	}

	obs.Status = JobStatus(strings.TrimSpace(parts[1]))
	pct, err := strconv.Atoi(strings.TrimSpace(strings.Trim(strings.TrimSpace(parts[2]), "%")))
	if err != nil {
		pct = 0
	}
	obs.Percent = min(max(pct, 0), 100)
	return obs, true
}

// PollResult is the terminal outcome of a successful poll
type PollResult struct {
	Final        Observation `json:"final"`
	Observations int         `json:"observations"`
}

// JobStatusPoller drives an export job to a terminal status
type JobStatusPoller struct {
	policy   BackoffPolicy
	sleeper  Sleeper
	progress ProgressReporter
	log      *LogCollector
	metrics  MetricsRecorder
}

// NewJobStatusPoller creates a poller. Nil collaborators are replaced by no-ops.
func NewJobStatusPoller(policy BackoffPolicy, sleeper Sleeper, progress ProgressReporter, log *LogCollector) *JobStatusPoller {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	if progress == nil {
		progress = NopProgress{}
	}
	if log == nil {
		log = NewLogCollector(nil)
	}
	return &JobStatusPoller{
		policy:   policy,
		sleeper:  sleeper,
		progress: progress,
		log:      log,
		metrics:  nopMetrics{},
	}
}

// WithMetrics records every observation on m
func (p *JobStatusPoller) WithMetrics(m MetricsRecorder) *JobStatusPoller {
	if m != nil {
		p.metrics = m
	}
	return p
}

// Poll observes src until the job succeeds or fails. Every observation,
// readable or not, counts against the attempt budget.
func (p *JobStatusPoller) Poll(ctx context.Context, src StatusSource) (*PollResult, error) {
	budget := p.policy.attempts()
	var retries, refreshes int
	last := -1

	for attempt := 1; attempt <= budget; attempt++ {
		raw, err := src.ReadStatus(ctx)
		if err != nil {
			p.log.Failure("Could not read export status: %v", err)
			return nil, apperrors.NewAutomationError("read export status", err)
		}
		p.log.Info("Status values (raw): %s", strings.ReplaceAll(strings.ReplaceAll(raw, "\r\n", "\n"), "\n", " | "))

		obs, ok := ParseStatus(raw)
		p.metrics.RecordObservation(ctx, string(obs.Status), ok)

		if !ok {
			p.log.Notice("Unexpected status text format, retrying after wait (attempt %d/%d)", attempt, budget)
			p.progress.Update("Waiting for a readable export status...")
			refreshes = 0
			if attempt == budget {
				break
			}
			if err := p.wait(ctx, src, p.policy.Delay(p.policy.RetryInterval, retries)); err != nil {
				return nil, err
			}
			retries++
			continue
		}
		retries = 0

		p.log.Info("Current status: '%s', Percent: %d%%", obs.Status, obs.Percent)
		p.progress.Update(fmt.Sprintf("Export status %s (%d%%)", obs.Status, obs.Percent))
		if last >= 0 && obs.Percent < last {
			p.log.Notice("Export progress went backwards from %d%% to %d%%", last, obs.Percent)
		}
		last = obs.Percent

		if obs.Status.IsTerminalFailure() {
			p.log.Failure("Export ended in terminal state: %s", obs.Status)
			p.progress.Update("Export job failed")
			return nil, apperrors.NewJobFailedError(string(obs.Status))
		}

		if obs.Percent < 100 {
			p.log.Info("Progress %d%% - waiting and refreshing...", obs.Percent)
			if attempt == budget {
				break
			}
			if err := p.wait(ctx, src, p.policy.Delay(p.policy.RefreshInterval, refreshes)); err != nil {
				return nil, err
			}
			refreshes++
			continue
		}

		if obs.Status.IsSuccess() {
			p.log.Success("Export reported success after %d observations", attempt)
			p.progress.Update("Export job completed")
			return &PollResult{Final: obs, Observations: attempt}, nil
		}

		p.log.Failure("Unexpected end status '%s' when percent==100", obs.Status)
		p.progress.Update("Export job ended in an unknown state")
		return nil, apperrors.NewUnexpectedTerminalStateError(string(obs.Status))
	}

	p.log.Failure("Export job did not reach a terminal state after %d observations", budget)
	p.progress.Update("Gave up waiting for the export job")
	return nil, apperrors.NewPollTimeoutError(budget)
}

func (p *JobStatusPoller) wait(ctx context.Context, src StatusSource, d time.Duration) error {
	if err := p.sleeper.Sleep(ctx, d); err != nil {
		return err
	}
	if err := src.Refresh(ctx); err != nil {
		p.log.Failure("Could not refresh export dashboard: %v", err)
		return apperrors.NewAutomationError("refresh export dashboard", err)
	}
	return nil
}
