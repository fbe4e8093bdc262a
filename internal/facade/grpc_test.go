package facade

import (
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rove/internal/dataswitch"
	"rove/internal/rtime"
)

func TestValidateRequestWireParsesISODuration(t *testing.T) {
	wire := validateRequestWire{
		Source:         "test",
		TimeStart:      rtime.Timestamp(0),
		TimeEnd:        rtime.Timestamp(3600),
		TimeResolution: "PT5M",
		SpaceKind:      int(dataswitch.SpaceAll),
		Pipeline:       "demo",
	}

	req, err := wire.toRequest()
	if err != nil {
		t.Fatalf("toRequest: %v", err)
	}
	want := rtime.RelativeDuration{Seconds: 5 * 60}
	if req.Time.TimeResolution != want {
		t.Errorf("TimeResolution = %+v, want %+v", req.Time.TimeResolution, want)
	}
}

func TestValidateRequestWireRejectsUnparseableDuration(t *testing.T) {
	wire := validateRequestWire{TimeResolution: "not-a-duration"}

	_, err := wire.toRequest()
	if err == nil {
		t.Fatal("expected an error for an unparseable time_resolution")
	}
	if s, ok := status.FromError(err); !ok || s.Code() != codes.InvalidArgument {
		t.Errorf("toRequest error does not carry InvalidArgument, got %v", err)
	}
}

func TestValidateRequestWireRejectsEmptyDuration(t *testing.T) {
	wire := validateRequestWire{}

	_, err := wire.toRequest()
	if err == nil {
		t.Fatal("expected an error for an empty time_resolution")
	}
}
