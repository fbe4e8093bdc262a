package grpcconn

import (
	"testing"

	"rove/internal/cache"
	"rove/internal/geo"
	"rove/internal/rtime"
)

func TestGobCodecRoundTrips(t *testing.T) {
	v := float32(12.5)
	dc := cache.DataCache{
		StartTime: rtime.Timestamp(1704067200),
		Period:    rtime.RelativeDuration{Seconds: 3600},
		Data:      []cache.Series{{Identifier: "station-1", Values: []*float32{&v}}},
		RTree:     geo.NewSpatialTree([]float32{60}, []float32{10}, []float32{0}),
	}

	codec := gobCodec{}
	raw, err := codec.Marshal(dc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got cache.DataCache
	if err := codec.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Data[0].Identifier != "station-1" {
		t.Errorf("identifier = %q, want station-1", got.Data[0].Identifier)
	}
	if *got.Data[0].Values[0] != v {
		t.Errorf("value = %v, want %v", *got.Data[0].Values[0], v)
	}
}

func TestGobCodecName(t *testing.T) {
	if (gobCodec{}).Name() != "gob" {
		t.Errorf("Name() = %q, want gob", gobCodec{}.Name())
	}
}

func TestDialDoesNotBlock(t *testing.T) {
	conn, err := Dial(Config{Address: "localhost:1", MaxRetries: 2, RetryBackoff: 0})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if conn == nil {
		t.Fatal("expected a non-nil connection")
	}
}
