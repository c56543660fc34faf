package telemetry

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/device"
)

// sample is one raw counter observation for an interface
type sample struct {
	rxBytes uint64
	txBytes uint64
	at      time.Time
}

// Rate is one computed bit-rate point for an interface
type Rate struct {
	Interface string    `json:"interface"`
	RxBps     float64   `json:"rx_bps"`
	TxBps     float64   `json:"tx_bps"`
	At        time.Time `json:"at"`
}

// Engine converts interface byte counters into bit-rate samples. State is
// process-local: previous counters and a bounded rolling window per
// interface per device, overwritten on each poll, never persisted.
type Engine struct {
	windowSize  int
	minInterval time.Duration

	nc      *nats.Conn // optional fan-out
	subject string

	mu     sync.Mutex
	prev   map[string]map[string]sample // device id -> interface -> last sample
	window map[string]map[string][]Rate
}

// NewEngine creates a telemetry engine. nc may be nil when NATS fan-out is
// not configured.
func NewEngine(windowSize int, minInterval time.Duration, nc *nats.Conn, subject string) *Engine {
	return &Engine{
		windowSize:  windowSize,
		minInterval: minInterval,
		nc:          nc,
		subject:     subject,
		prev:        make(map[string]map[string]sample),
		window:      make(map[string]map[string][]Rate),
	}
}

// Poll fetches the device's interface list and computes one rate point per
// interface. Overlapping polls for one device are not deduplicated; the
// caller's cadence bounds them.
func (e *Engine) Poll(ctx context.Context, deviceID string, c device.Client) ([]Rate, error) {
	records, err := c.Get(ctx, "/interface", nil)
	if err != nil {
		return nil, err
	}

	rates := e.Observe(deviceID, records, time.Now())
	e.publish(deviceID, rates)
	return rates, nil
}

// Observe folds one batch of interface records into the engine state and
// returns the computed rates. Split from Poll so the counter math is
// testable without a device.
func (e *Engine) Observe(deviceID string, records []device.Record, at time.Time) []Rate {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.prev[deviceID]
	if prev == nil {
		prev = make(map[string]sample)
		e.prev[deviceID] = prev
	}

	rates := make([]Rate, 0, len(records))
	for _, record := range records {
		name := device.RecordString(record, "name")
		if name == "" {
			continue
		}

		cur := sample{
			rxBytes: parseCounter(record, "rx-byte"),
			txBytes: parseCounter(record, "tx-byte"),
			at:      at,
		}

		rate := Rate{Interface: name, At: at}
		if last, ok := prev[name]; ok {
			dt := at.Sub(last.at)
			if dt >= e.minInterval {
				seconds := dt.Seconds()
				rate.RxBps = 8 * float64(counterDelta(last.rxBytes, cur.rxBytes)) / seconds
				rate.TxBps = 8 * float64(counterDelta(last.txBytes, cur.txBytes)) / seconds
			}
		}

		prev[name] = cur
		rates = append(rates, rate)
		e.push(deviceID, name, rate)
	}

	return rates
}

// Window returns the rolling rate history for one interface, oldest first
func (e *Engine) Window(deviceID, iface string) []Rate {
	e.mu.Lock()
	defer e.mu.Unlock()

	window := e.window[deviceID][iface]
	out := make([]Rate, len(window))
	copy(out, window)
	return out
}

// push appends a rate point, dropping the oldest past the window bound
func (e *Engine) push(deviceID, iface string, r Rate) {
	byIface := e.window[deviceID]
	if byIface == nil {
		byIface = make(map[string][]Rate)
		e.window[deviceID] = byIface
	}

	window := append(byIface[iface], r)
	if len(window) > e.windowSize {
		window = window[len(window)-e.windowSize:]
	}
	byIface[iface] = window
}

// publish fans a rate batch out over NATS for dashboard consumers
func (e *Engine) publish(deviceID string, rates []Rate) {
	if e.nc == nil || len(rates) == 0 {
		return
	}

	data, err := json.Marshal(rates)
	if err != nil {
		return
	}
	if err := e.nc.Publish(e.subject+"."+deviceID, data); err != nil {
		log.Debug().Err(err).Str("device_id", deviceID).Msg("Telemetry publish failed")
	}
}

// counterDelta handles counter reset and rollover: a counter that went
// backwards started over, so the current absolute value is the delta
func counterDelta(prev, cur uint64) uint64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}

// parseCounter reads a byte counter that may arrive as a string or number
func parseCounter(r device.Record, key string) uint64 {
	switch v := r[key].(type) {
	case string:
		n, _ := strconv.ParseUint(v, 10, 64)
		return n
	case float64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	default:
		return 0
	}
}
