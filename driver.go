package ch341

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a driver instance.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateReady
	StateClosing
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Driver turns a generic USB transport into an asynchronous serial port
// for the CH340/CH341 bridge chip family. One driver instance owns one
// device session; notifications are delivered on Events.
//
// The read loop and caller-issued writes may run concurrently, but
// register-configuration calls (SetBaudRate, SetControlLines, Break) must
// be serialized by the caller: the transport is not protected against two
// overlapping control transfers.
type Driver struct {
	mu        sync.RWMutex
	transport Transport
	cfg       Config
	log       *slog.Logger

	// Endpoints, assigned once during Open and immutable for the session.
	readEP  *EndpointInfo
	writeEP *EndpointInfo

	// Link state, mutated only by driver methods.
	bitrate int
	dtr     bool
	rts     bool
	closing bool

	state   State
	claimed []int
	version uint8

	events         chan Event
	disconnectOnce *sync.Once
	readDone       chan struct{}
}

// New creates a driver over an already-selected transport. The transport
// must not be shared with another driver instance.
func New(transport Transport, opts ...Option) (*Driver, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Driver{
		transport:      transport,
		cfg:            cfg,
		log:            cfg.Logger,
		bitrate:        cfg.BaudRate,
		dtr:            cfg.InitialDTR,
		rts:            cfg.InitialRTS,
		events:         make(chan Event, cfg.EventBuffer),
		disconnectOnce: &sync.Once{},
	}, nil
}

// Open brings the session up: transport open, interface claim, endpoint
// discovery, the vendor initialization sequence, then the read loop.
// Emits EventReady on success. Any failure transitions to the errored
// state, emits EventError and returns the failure; no retry is attempted.
func (d *Driver) Open() error {
	d.mu.Lock()
	if d.state == StateOpening || d.state == StateReady || d.state == StateClosing {
		d.mu.Unlock()
		return ErrAlreadyOpen
	}
	d.state = StateOpening
	d.disconnectOnce = &sync.Once{}
	readDone := d.readDone
	d.readDone = nil
	d.mu.Unlock()

	// Join a previous session's read loop before reusing the link state.
	if readDone != nil {
		<-readDone
	}

	if err := d.openSession(); err != nil {
		d.mu.Lock()
		d.state = StateErrored
		d.mu.Unlock()
		d.emit(Event{Type: EventError, Err: err})
		return err
	}

	d.mu.Lock()
	d.closing = false
	d.state = StateReady
	d.mu.Unlock()

	// Ready goes out before the loop starts so it always precedes any
	// data or disconnect event from this session.
	d.emit(Event{Type: EventReady})

	d.mu.Lock()
	d.readDone = make(chan struct{})
	go d.readLoop(d.readDone)
	d.mu.Unlock()
	return nil
}

func (d *Driver) openSession() error {
	if err := d.transport.Open(); err != nil {
		return fmt.Errorf("open transport: %w", err)
	}

	ifaces, err := d.transport.Interfaces()
	if err != nil {
		return fmt.Errorf("read configuration: %w", err)
	}
	if len(ifaces) == 0 {
		return ErrNoBulkEndpoints
	}

	d.claimed = d.claimed[:0]
	for _, iface := range ifaces {
		if err := d.transport.ClaimInterface(iface.Number); err != nil {
			return fmt.Errorf("claim interface %d: %w", iface.Number, err)
		}
		d.claimed = append(d.claimed, iface.Number)
	}

	// The serial endpoints live on the last interface of the active
	// configuration.
	last := ifaces[len(ifaces)-1]
	d.readEP, d.writeEP = partitionEndpoints(last.Endpoints, d.log)
	if d.readEP == nil && d.writeEP == nil {
		return ErrNoBulkEndpoints
	}

	if err := d.initialize(); err != nil {
		return err
	}

	if d.cfg.ApplyBaudRateOnOpen && d.cfg.BaudRate != DefaultBaudRate {
		if err := d.programBaudRate(d.cfg.BaudRate); err != nil {
			return err
		}
	}
	d.bitrate = d.cfg.BaudRate
	if !d.cfg.ApplyBaudRateOnOpen {
		d.bitrate = DefaultBaudRate
	}

	return nil
}

// partitionEndpoints splits the bulk endpoints of an alternate setting
// into read and write sides. Non-bulk endpoints are ignored; a bulk
// endpoint with an unrecognized direction draws a warning.
func partitionEndpoints(endpoints []EndpointInfo, log *slog.Logger) (readEP, writeEP *EndpointInfo) {
	for i := range endpoints {
		ep := endpoints[i]
		if ep.Type != EndpointBulk {
			continue
		}
		switch ep.Direction {
		case DirectionIn:
			readEP = &ep
		case DirectionOut:
			writeEP = &ep
		default:
			log.Warn("bulk endpoint with unknown direction",
				"endpoint", ep.Number, "direction", int(ep.Direction))
		}
	}
	return readEP, writeEP
}

// readLoop is the self-resubmitting bulk-in cycle. Each iteration issues
// one transfer sized to the endpoint's native packet size; oversized
// reads have been observed to fail on this hardware. The closing flag is
// the sole termination condition besides device removal.
func (d *Driver) readLoop(done chan<- struct{}) {
	defer close(done)

	d.mu.RLock()
	ep := d.readEP
	d.mu.RUnlock()
	if ep == nil {
		d.log.Warn("read loop has no bulk-in endpoint, closing")
		d.mu.Lock()
		d.closing = true
		d.mu.Unlock()
		d.disconnect()
		return
	}

	for {
		d.mu.RLock()
		stop := d.closing
		d.mu.RUnlock()
		if stop {
			return
		}

		buf, err := d.transport.BulkIn(ep.Number, ep.MaxPacketSize)
		if err != nil {
			if isDeviceRemoved(err) {
				d.log.Info("device removed, stopping read loop")
				d.mu.Lock()
				d.closing = true
				d.mu.Unlock()
				d.disconnect()
				return
			}
			// Ordinary transfer errors never stop the loop.
			d.log.Debug("bulk-in failed", "err", err)
			continue
		}

		if len(buf) == 0 {
			continue
		}

		// Copy out so the transport may reuse its buffer.
		chunk := make([]byte, len(buf))
		copy(chunk, buf)

		d.mu.RLock()
		stop = d.closing
		d.mu.RUnlock()
		if stop {
			return
		}
		d.emit(Event{Type: EventData, Data: chunk})
	}
}

// disconnect emits the session's single EventDisconnected.
func (d *Driver) disconnect() {
	d.disconnectOnce.Do(func() {
		d.emit(Event{Type: EventDisconnected})
	})
}

// Close halts the read loop, emits EventDisconnected, waits out the
// configured grace delay so an in-flight transfer can settle, then
// releases the claimed interfaces and closes the transport. Release and
// close failures are returned to the caller.
func (d *Driver) Close() error {
	d.mu.Lock()
	switch d.state {
	case StateClosed:
		d.mu.Unlock()
		return ErrDriverClosed
	case StateClosing:
		d.mu.Unlock()
		return ErrDriverClosed
	}
	d.state = StateClosing
	d.closing = true
	d.mu.Unlock()

	d.disconnect()

	// Fixed grace delay: there is no mid-transfer cancellation, so give an
	// in-flight bulk transfer its natural completion before reclaiming
	// the device.
	time.Sleep(d.cfg.CloseDelay)

	var firstErr error
	d.mu.Lock()
	claimed := d.claimed
	d.claimed = nil
	d.mu.Unlock()
	for _, num := range claimed {
		if err := d.transport.ReleaseInterface(num); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("release interface %d: %w", num, err)
		}
	}
	if err := d.transport.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close transport: %w", err)
	}

	d.mu.Lock()
	d.state = StateClosed
	d.mu.Unlock()
	return firstErr
}

// Write issues one bulk-out transfer and returns the byte count reported
// by the transport. Valid only while the driver is ready. Concurrent
// writes are not serialized against each other; callers needing strict
// on-wire ordering must not overlap writes.
func (d *Driver) Write(p []byte) (int, error) {
	d.mu.RLock()
	state := d.state
	ep := d.writeEP
	d.mu.RUnlock()

	if state != StateReady {
		return 0, ErrNotReady
	}
	if ep == nil {
		return 0, ErrNoWriteEndpoint
	}

	n, err := d.transport.BulkOut(ep.Number, p)
	if err != nil {
		return n, fmt.Errorf("bulk-out: %w", err)
	}
	return n, nil
}

// SetBaudRate reprograms the baud rate generator at runtime.
func (d *Driver) SetBaudRate(bitrate int) error {
	d.mu.RLock()
	state := d.state
	d.mu.RUnlock()
	if state != StateReady {
		return ErrNotReady
	}

	if err := d.programBaudRate(bitrate); err != nil {
		return err
	}

	d.mu.Lock()
	d.bitrate = bitrate
	d.mu.Unlock()
	return nil
}

// SetControlLines sets both modem control outputs in one register write.
func (d *Driver) SetControlLines(dtr, rts bool) error {
	d.mu.Lock()
	if d.state != StateReady {
		d.mu.Unlock()
		return ErrNotReady
	}
	d.dtr = dtr
	d.rts = rts
	d.mu.Unlock()

	d.writeControlLines(dtr, rts)
	return nil
}

// SetDTR sets the DTR line, leaving RTS at its current state.
func (d *Driver) SetDTR(state bool) error {
	d.mu.RLock()
	rts := d.rts
	d.mu.RUnlock()
	return d.SetControlLines(state, rts)
}

// SetRTS sets the RTS line, leaving DTR at its current state.
func (d *Driver) SetRTS(state bool) error {
	d.mu.RLock()
	dtr := d.dtr
	d.mu.RUnlock()
	return d.SetControlLines(dtr, state)
}

// Break asserts or releases the serial break condition. Unlike plain
// register writes this reads the break register pair first, so a failed
// read is returned to the caller.
func (d *Driver) Break(on bool) error {
	d.mu.RLock()
	state := d.state
	d.mu.RUnlock()
	if state != StateReady {
		return ErrNotReady
	}

	buf, err := d.readRegister(reqReadReg, regBreak, 0, 2)
	if err != nil {
		return err
	}
	if len(buf) < 2 {
		return fmt.Errorf("break register read returned %d bytes", len(buf))
	}

	breakByte, lcrByte := buf[0], buf[1]
	if on {
		breakByte &^= breakBits
		lcrByte &^= breakLCRBit
	} else {
		breakByte |= breakBits
		lcrByte |= breakLCRBit
	}
	d.writeRegister(reqWriteReg, regBreak, uint16(lcrByte)<<8|uint16(breakByte))
	return nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// BaudRate returns the rate most recently programmed into the chip.
func (d *Driver) BaudRate() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bitrate
}

// DTR returns the driver's DTR state.
func (d *Driver) DTR() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dtr
}

// RTS returns the driver's RTS state.
func (d *Driver) RTS() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rts
}

// Version returns the chip version byte read during initialization.
func (d *Driver) Version() uint8 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

func isDeviceRemoved(err error) bool {
	return errors.Is(err, ErrDeviceRemoved)
}
