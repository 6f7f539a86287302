// Package mdns advertises the HTTP status page on the local network.
package mdns

import (
	"fmt"
	"net"
	"strconv"

	"github.com/enbility/zeroconf/v3"

	"github.com/sweeney/rotary-sensor/internal/status"
)

const (
	// ServiceType is the DNS-SD service type of the status page.
	ServiceType = "_http._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63
)

// Advertiser holds a registered mDNS service until Shutdown.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance on port with the given TXT records on all
// interfaces.
func Advertise(instance string, port int, txt []string) (*Advertiser, error) {
	if len(instance) > MaxInstanceNameLen {
		instance = instance[:MaxInstanceNameLen]
	}
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", ServiceType, err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// PortFromAddr extracts the numeric port from a listen address like ":80"
// or "0.0.0.0:8080".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("listen address %q has no fixed port", addr)
	}
	return port, nil
}

// TXTRecords describes the sensor in key=value form.
func TXTRecords(cfg status.Config) []string {
	return []string{
		"path=/",
		"json=/index.json",
		"backend=" + cfg.Backend,
		"pins=" + fmt.Sprintf("%d,%d,%d", cfg.PinA, cfg.PinB, cfg.PinOut),
		"rate=" + strconv.FormatFloat(cfg.SampleHz, 'f', -1, 64),
	}
}
