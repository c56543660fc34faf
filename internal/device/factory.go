package device

import (
	"time"

	"github.com/router-panel/router-panel-pro/internal/models"
)

// Factory builds protocol-bound clients from stored device profiles.
// Handles are per-request: nothing returned here is pooled or shared.
type Factory struct {
	timeout       time.Duration
	legacyPort    int
	legacyTLSPort int
}

// NewFactory creates a connection factory with the gateway's timeout policy
func NewFactory(timeout time.Duration, legacyPort, legacyTLSPort int) *Factory {
	return &Factory{
		timeout:       timeout,
		legacyPort:    legacyPort,
		legacyTLSPort: legacyTLSPort,
	}
}

// Client builds a client for the profile. Incomplete profiles are rejected
// before any network call.
func (f *Factory) Client(p *models.DeviceProfile) (Client, error) {
	if err := p.Validate(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	switch p.Protocol {
	case models.ProtocolREST:
		// An explicit TLS flag on the profile wins; otherwise port 80
		// means plain HTTP and everything else HTTPS.
		port := p.Port
		useTLS := port != 80
		if p.TLS != nil {
			useTLS = *p.TLS
		}
		if port == 0 {
			port = 443
			if !useTLS {
				port = 80
			}
		}
		return NewRESTClient(p.Host, port, useTLS, p.Username, p.Password, f.timeout), nil
	case models.ProtocolLegacy:
		// The binary API listens on its own well-known port, not the
		// profile's web port. A profile pinned to the TLS port selects
		// the TLS variant.
		port := f.legacyPort
		useTLS := false
		if p.Port == f.legacyTLSPort {
			port = f.legacyTLSPort
			useTLS = true
		}
		return NewLegacyClient(p.Host, port, useTLS, p.Username, p.Password, f.timeout), nil
	default:
		return nil, &ConfigError{Reason: "unknown protocol " + string(p.Protocol)}
	}
}
