// Package net provides networking utilities for mediadl.
package net

import (
	"net"
	"net/url"

	"mediadl/internal/utils/logging"
)

// IsPrivateNetwork reports whether host (a host, host:port or URL) only
// reaches loopback, private or link-local addresses. Unspecified addresses
// such as "0.0.0.0" or ":8827" listen on every interface and are not private.
func IsPrivateNetwork(host string) bool {
	h := hostname(host)

	switch h {
	case "":
		return false
	case "localhost":
		return true
	}

	if ip := net.ParseIP(h); ip != nil {
		return isPrivateIP(ip)
	}

	ips, err := net.LookupIP(h)
	if err != nil || len(ips) == 0 {
		logging.W("Failed to resolve hostname %q: %v", h, err)
		return false
	}
	for _, ip := range ips {
		if !isPrivateIP(ip) {
			logging.D(1, "Host %q resolved to public IP address %q", h, ip)
			return false
		}
	}
	return true
}

// hostname strips any port or URL parts from host.
func hostname(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	if u, err := url.Parse(host); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return host
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}
