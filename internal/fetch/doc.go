// Package fetch defines the core types and the orchestration engine for
// acquiring restricted web content. A single Fetch call walks an ordered
// list of bypass strategies (direct, DNS-substituted, header-spoofed,
// relay-proxied, mirror) until one produces a response that survives
// block detection, then scores and persists the document exactly once.
package fetch
