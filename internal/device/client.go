package device

import (
	"context"
)

// Record is one normalized device resource. Regardless of protocol, records
// carry hyphen-separated keys and, when the device supplied a native
// identifier, a convenience "id" field mirroring it.
type Record = map[string]any

// Client is the protocol-neutral operation set over one device. Both
// protocol variants implement it; callers never branch on protocol kind.
//
// Paths use the command-tree form shared by both protocols, e.g.
// "/ppp/secret" or "/queue/simple".
type Client interface {
	// Get lists resources under path, optionally filtered by exact-match
	// query parameters.
	Get(ctx context.Context, path string, query map[string]string) ([]Record, error)

	// Add creates a resource and returns the device's view of it. For the
	// legacy protocol the returned record carries only the new identifier.
	Add(ctx context.Context, path string, params Record) (Record, error)

	// Set updates the resource identified by id.
	Set(ctx context.Context, path, id string, params Record) (Record, error)

	// Remove deletes the resource identified by id.
	Remove(ctx context.Context, path, id string) error

	// Command runs a native command that is not plain CRUD (ping, reboot,
	// fetch). Params become command arguments.
	Command(ctx context.Context, path string, params Record) ([]Record, error)
}

// FindOne returns the single record under path matching the query, or nil
// when there is no match. Shared find-or-create helper for upsert steps.
func FindOne(ctx context.Context, c Client, path string, query map[string]string) (Record, error) {
	records, err := c.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// RecordID extracts the identifier from a normalized record
func RecordID(r Record) string {
	if r == nil {
		return ""
	}
	if id, ok := r["id"].(string); ok {
		return id
	}
	if id, ok := r[".id"].(string); ok {
		return id
	}
	return ""
}

// RecordString extracts a string field from a normalized record
func RecordString(r Record, key string) string {
	if r == nil {
		return ""
	}
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}
