package provision

import (
	"context"
	"fmt"

	"github.com/router-panel/router-panel-pro/internal/device"
)

// fakeDevice is an in-memory device configuration store for workflow tests.
// It behaves like a normalized device: records carry "id" and hyphenated
// keys, queries are exact-match.
type fakeDevice struct {
	tables map[string][]device.Record
	nextID int
	calls  []string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{tables: make(map[string][]device.Record)}
}

func (d *fakeDevice) Get(_ context.Context, path string, query map[string]string) ([]device.Record, error) {
	d.calls = append(d.calls, "get "+path)

	var out []device.Record
	for _, record := range d.tables[path] {
		if matches(record, query) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (d *fakeDevice) Add(_ context.Context, path string, params device.Record) (device.Record, error) {
	d.calls = append(d.calls, "add "+path)

	d.nextID++
	record := device.Record{"id": fmt.Sprintf("*%d", d.nextID), ".id": fmt.Sprintf("*%d", d.nextID)}
	for k, v := range params {
		record[k] = v
	}
	d.tables[path] = append(d.tables[path], record)
	return record, nil
}

func (d *fakeDevice) Set(_ context.Context, path, id string, params device.Record) (device.Record, error) {
	d.calls = append(d.calls, "set "+path)

	for _, record := range d.tables[path] {
		if record["id"] == id {
			for k, v := range params {
				record[k] = v
			}
			return record, nil
		}
	}
	return nil, &device.DeviceError{Message: "no such item"}
}

func (d *fakeDevice) Remove(_ context.Context, path, id string) error {
	d.calls = append(d.calls, "remove "+path)

	table := d.tables[path]
	for i, record := range table {
		if record["id"] == id {
			d.tables[path] = append(table[:i], table[i+1:]...)
			return nil
		}
	}
	return &device.DeviceError{Message: "no such item"}
}

func (d *fakeDevice) Command(_ context.Context, path string, _ device.Record) ([]device.Record, error) {
	d.calls = append(d.calls, "command "+path)
	return nil, nil
}

// find returns the first record under path matching the query, nil if none
func (d *fakeDevice) find(path string, query map[string]string) device.Record {
	for _, record := range d.tables[path] {
		if matches(record, query) {
			return record
		}
	}
	return nil
}

func (d *fakeDevice) count(path string) int {
	return len(d.tables[path])
}

func matches(record device.Record, query map[string]string) bool {
	for k, v := range query {
		if device.RecordString(record, k) != v {
			return false
		}
	}
	return true
}
