// Package ch341 provides a protocol driver for the WCH CH340/CH341 family
// of USB-to-serial bridge chips, turning a generic USB transport into an
// asynchronous serial port.
//
// The package owns the chip's vendor protocol: the register read/write
// convention, the baud-rate register encoding, the multi-step
// initialization handshake, and the continuous bulk-in read loop. Device
// enumeration and the low-level USB stack are external collaborators
// behind the Transport interface; a ready-made libusb implementation is
// included (USBTransport, via github.com/google/gousb).
//
// # Basic Usage
//
// Open the first attached bridge and stream received data:
//
//	transport, err := ch341.OpenFirst()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	drv, err := ch341.New(transport, ch341.WithBaudRate(115200))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := drv.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	for ev := range drv.Events() {
//	    switch ev.Type {
//	    case ch341.EventData:
//	        fmt.Printf("%s", ev.Data)
//	    case ch341.EventDisconnected:
//	        return
//	    }
//	}
//
// # Notifications
//
// The driver reports through a buffered event channel rather than
// callbacks: EventReady once after a successful Open, EventData per
// received chunk, EventDisconnected exactly once per session (device
// removal or Close), and EventError for fatal open failures. Receivers
// own the Data slice of each event.
//
// # Writing and control lines
//
//	n, err := drv.Write([]byte("AT\r\n"))
//	err = drv.SetDTR(false)
//	err = drv.SetRTS(true)
//	err = drv.SetBaudRate(9600)
//
// The read loop and writes may run concurrently, but register
// configuration calls (SetBaudRate, SetControlLines, Break) must be
// serialized by the caller.
//
// # Initialization and baud rate
//
// The vendor init handshake always programs the chip to DefaultBaudRate
// (9600) first. By default Open then applies the configured rate; pass
// WithApplyBaudRateOnOpen(false) to keep the handshake's rate and call
// SetBaudRate explicitly.
//
// # Hardware quirks
//
// The chip's status replies are unreliable, so register verification
// during initialization compares response lengths only and never fails
// the handshake. Individual register writes that the firmware NAKs are
// logged and tolerated; the commands are usually applied regardless.
// Bulk reads are sized to the endpoint's native packet size because
// oversized reads have been observed to fail on this hardware.
//
// # Device discovery
//
// The identifying constants VendorID, ProductIDCH340 and ProductIDCH341
// are published for callers doing their own selection. ListDevices scans
// the bus for attached bridges:
//
//	devices, err := ch341.ListDevices()
//	for _, d := range devices {
//	    fmt.Printf("bus %d addr %d %04x:%04x %s\n",
//	        d.Bus, d.Address, d.VendorID, d.ProductID, d.Product)
//	}
//
// # Error Handling
//
// The library provides specific error types for robust error handling:
//
//	var (
//	    ErrUnsupportedBaudRate // rate cannot be encoded for this chip
//	    ErrNoWriteEndpoint     // write before endpoint discovery
//	    ErrDeviceRemoved       // transport signaled device removal
//	    ErrNotReady            // operation requires an open session
//	    // ... and more
//	)
//
// Use errors.Is() for error type checking:
//
//	if errors.Is(err, ch341.ErrUnsupportedBaudRate) {
//	    // pick a supported rate
//	}
package ch341
