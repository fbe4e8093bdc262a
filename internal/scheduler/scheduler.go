// Package scheduler implements the per-request coordination (C6):
// resolve a pipeline, fetch its backing DataCache exactly once, run
// each step through the harness in declared order, and stream results
// back over a bounded channel. A caller that stops reading cancels its
// context (the idiomatic Go analogue of a dropped gRPC stream), and
// the driver goroutine exits on its next send attempt.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"rove/internal/apperror"
	"rove/internal/cache"
	"rove/internal/dataswitch"
	"rove/internal/harness"
	"rove/internal/logger"
	"rove/internal/metrics"
	"rove/internal/pipeline"
	"rove/internal/result"
	"rove/internal/rtime"
	"rove/internal/telemetry"
)

// StepOutcome is one message on the response channel: a completed
// step's ValidateResponse, or the error that aborted the driver (sent
// as the channel's final message before it closes).
type StepOutcome struct {
	Response result.ValidateResponse
	Err      error
}

// Scheduler is built once at service start from a read-only pipeline
// map and data switch, then shared by every concurrent request.
type Scheduler struct {
	pipelines map[string]pipeline.Pipeline
	sw        *dataswitch.DataSwitch
	harness   *harness.Harness
}

// New builds a Scheduler. pipelines and sw are held by reference and
// must not be mutated afterwards; they are read concurrently by every
// in-flight request.
func New(pipelines map[string]pipeline.Pipeline, sw *dataswitch.DataSwitch, h *harness.Harness) *Scheduler {
	return &Scheduler{pipelines: pipelines, sw: sw, harness: h}
}

// Validate is the in-process API mirroring the request façade's single
// operation. It resolves pipelineName and fetches the DataCache
// synchronously, so a caller sees an InvalidArg/data-source error
// immediately without ever reading the channel, then spawns the driver
// goroutine and returns the receiving end of its response channel.
//
// backingSources is validated as non-empty-string but otherwise
// unused by the algorithm: it is reserved for connectors that want
// additional context sources beyond the primary one.
func (s *Scheduler) Validate(
	ctx context.Context,
	source string,
	backingSources []string,
	timeSpec rtime.TimeSpec,
	space dataswitch.SpaceSpec,
	pipelineName string,
	extra string,
) (<-chan StepOutcome, error) {
	for _, bs := range backingSources {
		if bs == "" {
			return nil, apperror.NewWithField(apperror.CodeInvalidArg, "backing source name is empty", "backing_sources")
		}
	}

	p, ok := s.pipelines[pipelineName]
	if !ok {
		return nil, apperror.NewWithField(apperror.CodeInvalidArg,
			"unknown pipeline "+pipelineName, "pipeline")
	}
	if len(p.Steps) == 0 {
		return nil, apperror.New(apperror.CodeInvalidArg, "pipeline "+pipelineName+" has no steps")
	}

	requestID := uuid.NewString()
	ctx, span := telemetry.StartSpan(ctx, "Scheduler.Validate")
	telemetry.SetAttributes(ctx,
		telemetry.StringAttr("request_id", requestID),
		telemetry.StringAttr("pipeline", pipelineName),
		telemetry.StringAttr("source", source))

	fetchStart := time.Now()
	dc, err := s.sw.FetchData(ctx, source, dataswitch.FetchRequest{
		Space:       space,
		Time:        timeSpec,
		NumLeading:  p.NumLeadingRequired,
		NumTrailing: p.NumTrailingRequired,
		Extra:       extra,
	})
	if err != nil {
		metrics.Get().RecordFetch(source, "error", time.Since(fetchStart))
		telemetry.SetError(ctx, err)
		span.End()
		logger.Log.Warn("fetch failed", "request_id", requestID, "source", source, "error", err)
		return nil, err
	}
	metrics.Get().RecordFetch(source, "ok", time.Since(fetchStart))

	ch := make(chan StepOutcome, len(p.Steps))
	go s.drive(ctx, span, requestID, pipelineName, p, dc, ch)
	return ch, nil
}

func (s *Scheduler) drive(
	ctx context.Context, span trace.Span, requestID, pipelineName string,
	p pipeline.Pipeline, dc cache.DataCache, ch chan<- StepOutcome,
) {
	defer span.End()
	defer close(ch)

	requestStart := time.Now()
	log := logger.WithRequestID(requestID)
	status := "ok"

	for _, step := range p.Steps {
		stepStart := time.Now()
		resp, err := s.harness.RunStep(step, dc)
		if err != nil {
			status = "error"
			telemetry.SetError(ctx, err)
			metrics.Get().RecordStep(pipelineName, string(step.Check.Kind), "error", time.Since(stepStart), nil)
			log.Warn("step failed", "step", step.Name, "error", err)
			select {
			case ch <- StepOutcome{Err: err}:
			case <-ctx.Done():
				metrics.Get().RecordChannelAbort(pipelineName)
			}
			break
		}

		flagCounts := make(map[string]int)
		for _, r := range resp.Results {
			flagCounts[r.Flag.String()]++
		}
		metrics.Get().RecordStep(pipelineName, string(step.Check.Kind), "ok", time.Since(stepStart), flagCounts)
		telemetry.AddEvent(ctx, "step completed", telemetry.StringAttr("step", step.Name))

		select {
		case ch <- StepOutcome{Response: resp}:
		case <-ctx.Done():
			metrics.Get().RecordChannelAbort(pipelineName)
			status = "cancelled"
			log.Info("caller disconnected mid-stream", "last_step", step.Name)
			return
		}
	}

	metrics.Get().RecordRequest(pipelineName, status, time.Since(requestStart))
}
