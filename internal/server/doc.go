// Package server implements the UDP ingress for audio packets and the HTTP API
// for monitoring and management. Packets are parsed and routed to pipeline
// sessions on a single goroutine so each stream sees them in arrival order.
package server
