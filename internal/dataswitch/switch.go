// Package dataswitch routes a named data source, plus a fetch request,
// to the connector registered for it (C2).
package dataswitch

import (
	"context"
	"fmt"

	"rove/internal/apperror"
	"rove/internal/cache"
)

// DataSwitch holds an immutable mapping from source name to Connector.
// It is built once at service start and shared read-only by every
// concurrent request.
type DataSwitch struct {
	connectors map[string]Connector
}

// New builds a DataSwitch from a source-name -> Connector mapping. The
// map is copied so the caller's map can be mutated afterwards without
// affecting the switch.
func New(connectors map[string]Connector) *DataSwitch {
	cp := make(map[string]Connector, len(connectors))
	for k, v := range connectors {
		cp[k] = v
	}
	return &DataSwitch{connectors: cp}
}

// Sources returns the registered source names.
func (sw *DataSwitch) Sources() []string {
	out := make([]string, 0, len(sw.connectors))
	for name := range sw.connectors {
		out = append(out, name)
	}
	return out
}

// FetchData dispatches to the connector registered for source. If
// source is not registered, it fails with CodeInvalidDataSource before
// any connector is invoked. Otherwise every other argument is
// forwarded unchanged and the connector's result (including its
// errors) is returned verbatim.
func (sw *DataSwitch) FetchData(ctx context.Context, source string, req FetchRequest) (cache.DataCache, error) {
	conn, ok := sw.connectors[source]
	if !ok {
		return cache.DataCache{}, apperror.NewWithField(
			apperror.CodeInvalidDataSource,
			fmt.Sprintf("unregistered data source %q", source),
			"data_source",
		).WithDetails("source", source)
	}
	return conn.FetchData(ctx, req)
}
