package fetch

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// CanonicalURL standardizes a URL so logically identical documents share a
// canonical key: lowercase scheme/host, default ports and fragments removed,
// query parameters sorted.
func CanonicalURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawQuery = u.Query().Encode()
	return u.String(), nil
}

// substituteHost swaps the URL's host for a literal IP, preserving any
// explicit port, and reports the original hostname for the Host header.
// IPv6 literals get bracketed so the URL stays parseable.
func substituteHost(rawURL, ip string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	host := u.Hostname()
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(ip, port)
	} else if strings.Contains(ip, ":") {
		u.Host = "[" + ip + "]"
	} else {
		u.Host = ip
	}
	return u.String(), host, nil
}
