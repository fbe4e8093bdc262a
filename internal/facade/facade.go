// Package facade is the request façade (C7): it is the single entry
// point callers drive, translating a validate request into a
// scheduler.Validate call and shaping errors into the status codes
// §7 specifies — InvalidArgument/NotFound before the stream opens,
// Aborted for anything that fails mid-stream.
//
// The check algorithms this repository streams are explicitly not
// wire-encoded with protobuf (that boundary is out of scope), so this
// package's primary surface is a plain Go interface shaped exactly
// like the generated server-streaming stub the teacher's services use
// (see ServiceDesc in grpc.go for the hand-assembled wire adapter that
// lets a real grpc.Server still drive it).
package facade

import (
	"context"
	"time"

	"rove/internal/apperror"
	"rove/internal/dataswitch"
	"rove/internal/logger"
	"rove/internal/result"
	"rove/internal/rtime"
	"rove/internal/scheduler"
	"rove/internal/telemetry"
)

// ValidateRequest is every argument a caller supplies to Validate (§6.1).
type ValidateRequest struct {
	Source         string
	BackingSources []string
	Time           rtime.TimeSpec
	Space          dataswitch.SpaceSpec
	Pipeline       string
	Extra          string
}

// ValidateStream is the shape of a server-streaming response sink,
// modelled directly on a protoc-gen-go-grpc SimulationService_RunXStream
// interface: one Send per message, and the request's context.
type ValidateStream interface {
	Send(*result.ValidateResponse) error
	Context() context.Context
}

// Facade wires a Scheduler to the streaming surface.
type Facade struct {
	sched *scheduler.Scheduler
}

// New builds a Facade over sched.
func New(sched *scheduler.Scheduler) *Facade {
	return &Facade{sched: sched}
}

// Validate is C7's single operation: resolve+fetch happen before the
// first Send, so a caller who never reads a response still observes
// InvalidArgument/NotFound/etc. as a returned error rather than a
// stream event. Once streaming starts, a step failure or a broken
// Send is reported as Aborted.
func (f *Facade) Validate(req ValidateRequest, stream ValidateStream) error {
	ctx := stream.Context()
	start := time.Now()

	outcomes, err := f.sched.Validate(ctx, req.Source, req.BackingSources, req.Time, req.Space, req.Pipeline, req.Extra)
	if err != nil {
		return apperror.ToGRPC(toPreStreamError(err))
	}

	for outcome := range outcomes {
		if outcome.Err != nil {
			telemetry.SetError(ctx, outcome.Err)
			return apperror.ToGRPC(toAbortedError(outcome.Err))
		}
		resp := outcome.Response
		if err := stream.Send(&resp); err != nil {
			logger.Log.Info("stream send failed, caller likely disconnected",
				"pipeline", req.Pipeline, "error", err)
			return apperror.ToGRPC(apperror.Wrap(err, apperror.CodeAborted, "failed to send step result"))
		}
	}

	logger.Log.Debug("validate stream completed", "pipeline", req.Pipeline, "duration", time.Since(start))
	return nil
}

// toPreStreamError preserves the scheduler's own code (InvalidArg,
// InvalidDataSource, etc all already map to sensible gRPC codes via
// apperror.GRPCStatus); it exists as a named seam so pre-stream and
// in-stream mapping can diverge if a future code needs different
// handling at the two points.
func toPreStreamError(err error) error {
	return err
}

// toAbortedError re-codes any in-stream failure as Aborted per §7,
// regardless of the underlying apperror code, since the stream itself
// is what failed partway through, not the original request shape.
func toAbortedError(err error) error {
	if appErr, ok := err.(*apperror.Error); ok {
		return apperror.New(apperror.CodeAborted, appErr.Message).WithDetails("cause_code", string(appErr.Code))
	}
	return apperror.Wrap(err, apperror.CodeAborted, "pipeline step aborted")
}
