package providers

import (
	"net"
	"net/url"
	"time"
)

// probeAddrs are dialed to verify basic internet reachability before the
// first provider call. Overridable in tests.
var probeAddrs = []string{"1.1.1.1:443", "8.8.8.8:53"}

// probeTimeout bounds each reachability probe.
var probeTimeout = 3 * time.Second

// checkConnectivity verifies network reachability for the given endpoint.
// Endpoints resolving to loopback or private addresses skip the check:
// a self-hosted model on the LAN must work without internet access.
func checkConnectivity(endpoint string) error {
	if isPrivateEndpoint(endpoint) {
		return nil
	}
	for _, addr := range probeAddrs {
		conn, err := net.DialTimeout("tcp", addr, probeTimeout)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return ErrNoNetwork
}

// isPrivateEndpoint reports whether the endpoint host is loopback or in
// a private range (127.0.0.1, localhost, 10.*, 192.168.*, ...).
func isPrivateEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
