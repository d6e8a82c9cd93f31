// Package server implements the UDP listener for TUIO datagrams and the
// HTTP/WebSocket front end. It handles datagram decoding and ordered
// hand-off to the broadcast hub, the command API, and subscriber
// connection lifecycle.
package server
