package dataswitch

import (
	"context"

	"rove/internal/cache"
)

// Connector is the uniform interface (C1) every data source plugs in
// behind. Concrete implementations (FROST HTTP client, Netatmo CSV
// reader, ...) are external collaborators, out of scope for this
// repository; only the contract lives here.
//
// Implementations that do blocking I/O must run it on a goroutine/
// thread-pool adapter and return only once the executor can resume, so
// the caller's goroutine never blocks on a syscall (§5, §9).
type Connector interface {
	FetchData(ctx context.Context, req FetchRequest) (cache.DataCache, error)
}
