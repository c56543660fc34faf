package telemetry

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/router-panel/router-panel-pro/internal/device"
)

func iface(name string, rx, tx uint64) device.Record {
	return device.Record{
		"name":    name,
		"rx-byte": strconv.FormatUint(rx, 10),
		"tx-byte": strconv.FormatUint(tx, 10),
	}
}

func newTestEngine() *Engine {
	return NewEngine(5, 100*time.Millisecond, nil, "telemetry.device")
}

func TestFirstObservationYieldsZeroRate(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	rates := e.Observe("dev1", []device.Record{iface("ether1", 1000, 2000)}, now)
	require.Len(t, rates, 1)
	assert.Zero(t, rates[0].RxBps)
	assert.Zero(t, rates[0].TxBps)
}

func TestRateComputation(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	e.Observe("dev1", []device.Record{iface("ether1", 1000, 500)}, now)
	rates := e.Observe("dev1", []device.Record{iface("ether1", 2000, 1000)}, now.Add(time.Second))

	require.Len(t, rates, 1)
	assert.InDelta(t, 8000.0, rates[0].RxBps, 0.01)
	assert.InDelta(t, 4000.0, rates[0].TxBps, 0.01)
}

func TestCounterWraparoundUsesAbsoluteValue(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	e.Observe("dev1", []device.Record{iface("ether1", 1000, 1000)}, now)
	rates := e.Observe("dev1", []device.Record{iface("ether1", 200, 200)}, now.Add(time.Second))

	require.Len(t, rates, 1)
	// the counter started over: delta is 200, not -800
	assert.InDelta(t, 1600.0, rates[0].RxBps, 0.01)
	assert.InDelta(t, 1600.0, rates[0].TxBps, 0.01)
}

func TestSubThresholdIntervalYieldsZeroRate(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	e.Observe("dev1", []device.Record{iface("ether1", 0, 0)}, now)
	rates := e.Observe("dev1", []device.Record{iface("ether1", 1<<30, 1<<30)}, now.Add(50*time.Millisecond))

	require.Len(t, rates, 1)
	assert.Zero(t, rates[0].RxBps)
	assert.Zero(t, rates[0].TxBps)
}

func TestWindowBoundDropsOldestFirst(t *testing.T) {
	e := newTestEngine() // window size 5
	now := time.Now()

	for i := 0; i < 8; i++ {
		e.Observe("dev1", []device.Record{iface("ether1", uint64(i*1000), 0)}, now.Add(time.Duration(i)*time.Second))
	}

	window := e.Window("dev1", "ether1")
	require.Len(t, window, 5)

	// oldest points dropped: the first remaining is observation 3
	assert.Equal(t, now.Add(3*time.Second), window[0].At)
	assert.Equal(t, now.Add(7*time.Second), window[4].At)
}

func TestDevicesAndInterfacesAreIndependent(t *testing.T) {
	e := newTestEngine()
	now := time.Now()

	e.Observe("dev1", []device.Record{iface("ether1", 1000, 0)}, now)
	e.Observe("dev2", []device.Record{iface("ether1", 1000, 0)}, now)

	rates := e.Observe("dev1", []device.Record{
		iface("ether1", 2000, 0),
		iface("ether2", 9000, 0),
	}, now.Add(time.Second))

	require.Len(t, rates, 2)
	assert.InDelta(t, 8000.0, rates[0].RxBps, 0.01)
	assert.Zero(t, rates[1].RxBps, "new interface has no prior sample")
}
