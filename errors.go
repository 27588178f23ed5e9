package ch341

import "errors"

// Predefined error types for robust error handling
var (
	ErrUnsupportedBaudRate = errors.New("baud rate cannot be encoded for this chip")
	ErrInvalidConfig       = errors.New("invalid driver configuration")
	ErrAlreadyOpen         = errors.New("driver is already open")
	ErrNotReady            = errors.New("driver is not open")
	ErrDriverClosed        = errors.New("driver is closed")

	// Endpoint discovery errors
	ErrNoBulkEndpoints = errors.New("no bulk endpoints found on device interface")
	ErrNoWriteEndpoint = errors.New("no bulk-out endpoint assigned")
	ErrNoReadEndpoint  = errors.New("no bulk-in endpoint assigned")

	// Transport-level errors
	ErrDeviceRemoved  = errors.New("usb device removed")
	ErrDeviceNotFound = errors.New("no matching usb device found")
)
