// Package rediscache wraps a Connector with a Redis-backed read-through
// cache, so overlapping requests for the same (source, space, time,
// leading, trailing, extra) window skip the network round trip to the
// backing store. This is domain-stack wiring, not required by any
// invariant in the spec: a cache miss or a disabled cache behaves
// exactly like the undecorated connector.
package rediscache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"rove/internal/cache"
	"rove/internal/dataswitch"
)

// Decorator wraps a Connector with a Redis cache of fetched
// DataCache results.
type Decorator struct {
	next   dataswitch.Connector
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// New wraps next with a read-through cache keyed on the fetch request,
// stored in client under prefix and expiring after ttl. The source name
// is not part of the hashed key; entries of different sources are told
// apart only by prefix.
func New(next dataswitch.Connector, client *redis.Client, prefix string, ttl time.Duration) *Decorator {
	return &Decorator{next: next, client: client, ttl: ttl, prefix: prefix}
}

// FetchData implements dataswitch.Connector. On any Redis error
// (including cache miss) it falls through to next and, if that
// succeeds, best-effort stores the result.
func (d *Decorator) FetchData(ctx context.Context, req dataswitch.FetchRequest) (cache.DataCache, error) {
	key := d.key(req)

	if raw, err := d.client.Get(ctx, key).Bytes(); err == nil {
		var dc cache.DataCache
		if decodeErr := gobDecode(raw, &dc); decodeErr == nil {
			return dc, nil
		}
	}

	dc, err := d.next.FetchData(ctx, req)
	if err != nil {
		return cache.DataCache{}, err
	}

	if raw, encodeErr := gobEncode(dc); encodeErr == nil {
		d.client.Set(ctx, key, raw, d.ttl)
	}
	return dc, nil
}

func (d *Decorator) key(req dataswitch.FetchRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%d|%s|%s|%d|%d|%d|%d|%s",
		req.Space.Kind, len(req.Space.Polygon.Points), req.Space.DataID,
		req.Time.TimeResolution, req.Time.Range.Start, req.Time.Range.End,
		req.NumLeading, req.NumTrailing, req.Extra)
	for _, p := range req.Space.Polygon.Points {
		fmt.Fprintf(h, "|%g,%g", p.Lat, p.Lon)
	}
	return d.prefix + hex.EncodeToString(h.Sum(nil))
}

func gobEncode(dc cache.DataCache) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode(raw []byte, dc *cache.DataCache) error {
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(dc)
}
