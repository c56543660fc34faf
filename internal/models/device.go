package models

import (
	"fmt"
)

// Protocol identifies which control protocol a device speaks
type Protocol string

const (
	// ProtocolREST is the HTTP/JSON control API of newer firmware
	ProtocolREST Protocol = "rest"
	// ProtocolLegacy is the connection-oriented binary command API
	ProtocolLegacy Protocol = "legacy"
)

// Valid reports whether the protocol kind is known
func (p Protocol) Valid() bool {
	return p == ProtocolREST || p == ProtocolLegacy
}

// DeviceProfile represents a stored connection record for one managed router.
// Profiles are owned by the panel datastore; the gateway only reads them.
//
// For REST devices, TLS selects the scheme explicitly. When absent the port
// decides: 80 means plain HTTP, anything else HTTPS (0 defaults to 443).
type DeviceProfile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Protocol Protocol `json:"protocol"`
	TLS      *bool    `json:"tls,omitempty"`
}

// Validate checks the fields required to build a client
func (p *DeviceProfile) Validate() error {
	if p.Host == "" {
		return fmt.Errorf("device %s: missing host", p.ID)
	}
	if p.Username == "" {
		return fmt.Errorf("device %s: missing username", p.ID)
	}
	if !p.Protocol.Valid() {
		return fmt.Errorf("device %s: unknown protocol %q", p.ID, p.Protocol)
	}
	return nil
}
