// This file hand-assembles the wire-level adapter a protoc-gen-go-grpc
// run would normally generate: a grpc.ServiceDesc plus a JSON
// encoding.Codec, so a real *grpc.Server can serve Facade.Validate as
// a server-streaming RPC without a .proto file. Wire encoding itself
// is out of scope for this repository; this exists only so the
// streaming shape in facade.go can be exercised end-to-end by a real
// grpc.Server when one is wanted, following the same ServiceDesc/
// stream-wrapper shape the teacher's generated *_grpc.pb.go files use.
package facade

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"rove/internal/apperror"
	"rove/internal/dataswitch"
	"rove/internal/geo"
	"rove/internal/result"
	"rove/internal/rtime"
)

// jsonCodec implements google.golang.org/grpc/encoding.Codec, standing
// in for the protobuf codec grpc-go otherwise registers by default.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

// validateRequestWire is the over-the-wire shape of a ValidateRequest.
// SpaceSpec's polygon/dataID fields are flattened since the tagged
// union doesn't serialize cleanly through encoding/json otherwise.
type validateRequestWire struct {
	Source         string          `json:"source"`
	BackingSources []string        `json:"backing_sources"`
	TimeStart      rtime.Timestamp `json:"time_start"`
	TimeEnd        rtime.Timestamp `json:"time_end"`
	TimeResolution string          `json:"time_resolution"`
	SpaceKind      int             `json:"space_kind"`
	DataID         string          `json:"data_id"`
	PolygonPoints  []geo.Point     `json:"polygon_points"`
	Pipeline       string          `json:"pipeline"`
	Extra          string          `json:"extra"`
}

// toRequest parses w.TimeResolution as an ISO-8601 duration (§4.6,
// C7) and reports an InvalidArgument error if it doesn't fit the
// subset rtime.ParseISODuration accepts.
func (w *validateRequestWire) toRequest() (ValidateRequest, error) {
	resolution, err := rtime.ParseISODuration(w.TimeResolution)
	if err != nil {
		return ValidateRequest{}, err
	}

	return ValidateRequest{
		Source:         w.Source,
		BackingSources: w.BackingSources,
		Time: rtime.TimeSpec{
			Range:          rtime.Timerange{Start: w.TimeStart, End: w.TimeEnd},
			TimeResolution: resolution,
		},
		Space: dataswitch.SpaceSpec{
			Kind:    dataswitch.SpaceKind(w.SpaceKind),
			DataID:  w.DataID,
			Polygon: geo.Polygon{Points: w.PolygonPoints},
		},
		Pipeline: w.Pipeline,
		Extra:    w.Extra,
	}, nil
}

// ValidateServer is what the hand-rolled ServiceDesc below dispatches
// to; *Facade satisfies it directly.
type ValidateServer interface {
	Validate(req ValidateRequest, stream ValidateStream) error
}

// grpcValidateStream adapts a raw grpc.ServerStream to ValidateStream.
type grpcValidateStream struct {
	grpc.ServerStream
}

func (s *grpcValidateStream) Send(resp *result.ValidateResponse) error {
	return s.ServerStream.SendMsg(resp)
}

func validateStreamHandler(srv any, stream grpc.ServerStream) error {
	var wire validateRequestWire
	if err := stream.RecvMsg(&wire); err != nil {
		return err
	}
	req, err := wire.toRequest()
	if err != nil {
		return apperror.ToGRPC(err)
	}
	return srv.(ValidateServer).Validate(req, &grpcValidateStream{ServerStream: stream})
}

// ServiceDesc is the grpc.ServiceDesc a real grpc.Server registers via
// RegisterService(&ServiceDesc, facadeImpl). Register facade.jsonCodec
// with encoding.RegisterCodec before dialing/serving so both ends agree
// on wire format.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "rove.ValidationService",
	HandlerType: (*ValidateServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Validate",
			Handler:       validateStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "rove/validate.proto",
}

// RegisterCodec installs the JSON codec under the content-subtype
// "json", so a client that calls with that content-subtype round-trips
// requests without protobuf-generated stubs. The default "proto" codec
// stays registered and is not replaced.
func RegisterCodec() {
	encoding.RegisterCodec(jsonCodec{})
}
