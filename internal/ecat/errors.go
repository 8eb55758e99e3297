package ecat

// Frame-level outcomes returned by InFrame and the functions built on it.
// These are not error values in the Go sense — they are normal results of
// a non-blocking receive and are returned as plain int results; only
// setup-time failures and transient link I/O failures use error.
const (
	// NoFrame means no frame was observed before the caller's timeout or
	// poll attempt elapsed.
	NoFrame = -1

	// OtherFrame means a frame was observed but it did not carry the
	// requested index, or its ethertype did not match EtherCAT.
	OtherFrame = -2
)
