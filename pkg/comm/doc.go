// Package comm provides the command/response layer between the bench and
// the device under test.
package comm

// The transport underneath is asynchronous: a transmit or receive is started
// and its completion is reported later through a Handler callback, possibly
// from another goroutine. Engine turns that into a single exchange which is
// advanced by polling from the bench loop, with a deadline on each direction
// and an optional byte-for-byte check of the response.
//
// Only one exchange may be outstanding at any time.
