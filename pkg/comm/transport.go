package comm

// Handler receives transport completion notifications.
// Both calls must return quickly, they only record a state transition.
type Handler interface {
	SendComplete()
	ReceiveComplete()
}

// Transport is an asynchronous byte transport to the peer.
// At most one transmit and one receive are outstanding at a time.
type Transport interface {
	// SetHandler installs the completion handler.
	SetHandler(Handler)
	// Transmit starts sending buf. Handler.SendComplete is called when
	// all bytes are written.
	Transmit(buf []byte) error
	// Receive starts filling buf. Handler.ReceiveComplete is called when
	// len(buf) bytes have arrived. buf must not be touched before that.
	Receive(buf []byte) error
	// Connected reports whether the peer is present.
	Connected() bool
	// Process services the transport. It is called on every loop iteration.
	Process()
	// Reset drops the connection and any in-flight transfer.
	Reset()
}
