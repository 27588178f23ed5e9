package ch341

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var errTransportStopped = errors.New("mock transport stopped")

type readResult struct {
	data []byte
	err  error
}

// mockTransport records every call in order and serves scripted bulk-in
// results from a channel, so tests control exactly when the read loop
// completes a cycle.
type mockTransport struct {
	mu      sync.Mutex
	trace   []string
	ifaces  []InterfaceInfo
	reads   chan readResult
	bulkInN int
	bulkOut [][]byte

	openErr  error
	claimErr error
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		ifaces: []InterfaceInfo{{
			Number: 0,
			Endpoints: []EndpointInfo{
				{Number: 1, Direction: DirectionIn, Type: EndpointInterrupt, MaxPacketSize: 8},
				{Number: 2, Direction: DirectionOut, Type: EndpointBulk, MaxPacketSize: 32},
				{Number: 2, Direction: DirectionIn, Type: EndpointBulk, MaxPacketSize: 32},
			},
		}},
		reads: make(chan readResult, 16),
	}
}

func (m *mockTransport) record(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = append(m.trace, fmt.Sprintf(format, args...))
}

func (m *mockTransport) Trace() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.trace))
	copy(out, m.trace)
	return out
}

func (m *mockTransport) Open() error {
	m.record("open")
	return m.openErr
}

func (m *mockTransport) Close() error {
	m.record("close")
	return nil
}

func (m *mockTransport) Interfaces() ([]InterfaceInfo, error) {
	m.record("interfaces")
	return m.ifaces, nil
}

func (m *mockTransport) ClaimInterface(number int) error {
	m.record("claim %d", number)
	return m.claimErr
}

func (m *mockTransport) ReleaseInterface(number int) error {
	m.record("release %d", number)
	return nil
}

func (m *mockTransport) ControlOut(request uint8, value, index uint16, payload []byte) (int, error) {
	m.record("controlOut %02x %04x %04x", request, value, index)
	return len(payload), nil
}

func (m *mockTransport) ControlIn(request uint8, value, index uint16, length int) ([]byte, error) {
	m.record("controlIn %02x %04x %04x", request, value, index)
	return make([]byte, length), nil
}

func (m *mockTransport) BulkIn(endpoint uint8, length int) ([]byte, error) {
	m.mu.Lock()
	m.bulkInN++
	m.mu.Unlock()

	res, ok := <-m.reads
	if !ok {
		return nil, errTransportStopped
	}
	return res.data, res.err
}

func (m *mockTransport) BulkOut(endpoint uint8, payload []byte) (int, error) {
	m.record("bulkOut %d", endpoint)
	m.mu.Lock()
	m.bulkOut = append(m.bulkOut, append([]byte(nil), payload...))
	m.mu.Unlock()
	return len(payload), nil
}

func (m *mockTransport) bulkInCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bulkInN
}

func openTestDriver(t *testing.T, transport *mockTransport, opts ...Option) *Driver {
	t.Helper()
	t.Cleanup(func() { close(transport.reads) })

	opts = append([]Option{WithCloseDelay(10 * time.Millisecond)}, opts...)
	drv, err := New(transport, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := drv.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	waitEvent(t, drv, EventReady)
	return drv
}

func waitEvent(t *testing.T, drv *Driver, want EventType) Event {
	t.Helper()
	select {
	case ev := <-drv.Events():
		if ev.Type != want {
			t.Fatalf("Expected %v event, got %v (err=%v)", want, ev.Type, ev.Err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("Timed out waiting for %v event", want)
		return Event{}
	}
}

func expectNoEvent(t *testing.T, drv *Driver, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-drv.Events():
		t.Fatalf("Unexpected %v event", ev.Type)
	case <-time.After(wait):
	}
}

func TestOpenRunsInitSequence(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport, WithBaudRate(1200))
	defer drv.Close()

	expected := []string{
		"open",
		"interfaces",
		"claim 0",
		"controlIn 5f 0000 0000", // version readback
		"controlOut a1 0000 0000",
		"controlOut 9a 1312 b282", // default 9600
		"controlOut 9a 0f2c 000c",
		"controlIn 95 2518 0000",
		"controlOut 9a 2518 00c3", // LCR: RX|TX|8 data bits
		"controlIn 95 0706 0000",
		"controlOut a1 501f d90a",
		"controlOut 9a 1312 b282", // 9600 re-asserted
		"controlOut 9a 0f2c 000c",
		"controlOut a4 009f 0000", // DTR+RTS, active-low
		"controlIn 95 0706 0000",
		"controlOut 9a 1312 b281", // configured 1200
		"controlOut 9a 0f2c 000c",
	}

	trace := transport.Trace()
	if len(trace) != len(expected) {
		t.Fatalf("Expected %d calls, got %d:\n%v", len(expected), len(trace), trace)
	}
	for i, want := range expected {
		if trace[i] != want {
			t.Errorf("Call %d = %q, expected %q", i, trace[i], want)
		}
	}

	if got := drv.BaudRate(); got != 1200 {
		t.Errorf("BaudRate() = %d, expected 1200", got)
	}
	if got := drv.State(); got != StateReady {
		t.Errorf("State() = %v, expected ready", got)
	}
}

func TestOpenSkipsConfiguredBaudRateWhenDisabled(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport, WithBaudRate(1200), WithApplyBaudRateOnOpen(false))
	defer drv.Close()

	for _, call := range transport.Trace() {
		if call == "controlOut 9a 1312 b281" {
			t.Error("Open programmed the configured rate despite WithApplyBaudRateOnOpen(false)")
		}
	}
	if got := drv.BaudRate(); got != DefaultBaudRate {
		t.Errorf("BaudRate() = %d, expected chip default %d", got, DefaultBaudRate)
	}
}

func TestReadLoopDataEvents(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)
	defer drv.Close()

	payload := []byte("hello, uart")
	transport.reads <- readResult{data: payload}

	ev := waitEvent(t, drv, EventData)
	if !bytes.Equal(ev.Data, payload) {
		t.Errorf("Data event = %q, expected %q", ev.Data, payload)
	}

	// Empty payloads are dropped silently; ordinary transfer errors are
	// tolerated. Only the following non-empty payload surfaces.
	transport.reads <- readResult{data: nil}
	transport.reads <- readResult{err: errors.New("pipe stall")}
	transport.reads <- readResult{data: []byte{0x42}}

	ev = waitEvent(t, drv, EventData)
	if !bytes.Equal(ev.Data, []byte{0x42}) {
		t.Errorf("Data event = %v, expected [0x42]", ev.Data)
	}
}

func TestReadLoopSizesToPacketSize(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)
	defer drv.Close()

	transport.reads <- readResult{data: []byte("x")}
	waitEvent(t, drv, EventData)
}

func TestReadLoopDeviceRemoved(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)

	transport.reads <- readResult{err: fmt.Errorf("bulk-in: %w", ErrDeviceRemoved)}

	waitEvent(t, drv, EventDisconnected)

	// No resubmission after removal.
	count := transport.bulkInCount()
	time.Sleep(50 * time.Millisecond)
	if got := transport.bulkInCount(); got != count {
		t.Errorf("Read loop resubmitted after device removal: %d -> %d", count, got)
	}
	expectNoEvent(t, drv, 50*time.Millisecond)
}

func TestReadLoopMissingReadEndpoint(t *testing.T) {
	transport := newMockTransport()
	transport.ifaces = []InterfaceInfo{{
		Number: 0,
		Endpoints: []EndpointInfo{
			{Number: 2, Direction: DirectionOut, Type: EndpointBulk, MaxPacketSize: 32},
		},
	}}
	drv := openTestDriver(t, transport)

	// Without a bulk-in endpoint the loop terminates at once, marks the
	// session closing and emits the disconnect.
	waitEvent(t, drv, EventDisconnected)

	if got := transport.bulkInCount(); got != 0 {
		t.Errorf("Read loop issued %d bulk-in transfers without an endpoint", got)
	}

	drv.mu.RLock()
	closing := drv.closing
	drv.mu.RUnlock()
	if !closing {
		t.Error("Read loop terminated without marking the session closing")
	}

	if err := drv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	expectNoEvent(t, drv, 50*time.Millisecond)
	if got := drv.State(); got != StateClosed {
		t.Errorf("State() = %v, expected closed", got)
	}
}

func TestCloseReleasesTransportOnce(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)

	// A bulk-in is in flight (blocked in the mock); Close must still
	// fully release and close the transport.
	if err := drv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	waitEvent(t, drv, EventDisconnected)
	expectNoEvent(t, drv, 50*time.Millisecond)

	var releases, closes int
	for _, call := range transport.Trace() {
		switch call {
		case "release 0":
			releases++
		case "close":
			closes++
		}
	}
	if releases != 1 {
		t.Errorf("Expected 1 interface release, got %d", releases)
	}
	if closes != 1 {
		t.Errorf("Expected 1 transport close, got %d", closes)
	}

	if got := drv.State(); got != StateClosed {
		t.Errorf("State() = %v, expected closed", got)
	}
	if err := drv.Close(); !errors.Is(err, ErrDriverClosed) {
		t.Errorf("Second Close = %v, expected ErrDriverClosed", err)
	}
}

func TestWrite(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)
	defer drv.Close()

	payload := []byte("AT\r\n")
	n, err := drv.Write(payload)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(payload) {
		t.Errorf("Write returned %d, expected %d", n, len(payload))
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.bulkOut) != 1 || !bytes.Equal(transport.bulkOut[0], payload) {
		t.Errorf("BulkOut received %v, expected %q", transport.bulkOut, payload)
	}
}

func TestWriteWithoutEndpoint(t *testing.T) {
	transport := newMockTransport()
	transport.ifaces = []InterfaceInfo{{
		Number: 0,
		Endpoints: []EndpointInfo{
			{Number: 2, Direction: DirectionIn, Type: EndpointBulk, MaxPacketSize: 32},
		},
	}}
	drv := openTestDriver(t, transport)
	defer drv.Close()

	_, err := drv.Write([]byte("x"))
	if !errors.Is(err, ErrNoWriteEndpoint) {
		t.Fatalf("Write = %v, expected ErrNoWriteEndpoint", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.bulkOut) != 0 {
		t.Error("Write without endpoint still touched the transport")
	}
}

func TestWriteBeforeOpen(t *testing.T) {
	drv, err := New(newMockTransport())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := drv.Write([]byte("x")); !errors.Is(err, ErrNotReady) {
		t.Errorf("Write = %v, expected ErrNotReady", err)
	}
}

func TestOpenTransportFailure(t *testing.T) {
	transport := newMockTransport()
	transport.openErr = errors.New("libusb: access denied")

	drv, err := New(transport)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := drv.Open(); err == nil {
		t.Fatal("Open expected error, got none")
	}

	ev := waitEvent(t, drv, EventError)
	if ev.Err == nil {
		t.Error("Error event missing failure detail")
	}
	if got := drv.State(); got != StateErrored {
		t.Errorf("State() = %v, expected errored", got)
	}
}

func TestOpenWhileOpen(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)
	defer drv.Close()

	if err := drv.Open(); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("Second Open = %v, expected ErrAlreadyOpen", err)
	}
}

func TestSetBaudRate(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)
	defer drv.Close()

	if err := drv.SetBaudRate(115200); err != nil {
		t.Fatalf("SetBaudRate failed: %v", err)
	}
	if got := drv.BaudRate(); got != 115200 {
		t.Errorf("BaudRate() = %d, expected 115200", got)
	}

	trace := transport.Trace()
	last := trace[len(trace)-2:]
	if last[0] != "controlOut 9a 1312 cc83" || last[1] != "controlOut 9a 0f2c 0008" {
		t.Errorf("SetBaudRate wrote %v", last)
	}

	if err := drv.SetBaudRate(2); !errors.Is(err, ErrUnsupportedBaudRate) {
		t.Errorf("SetBaudRate(2) = %v, expected ErrUnsupportedBaudRate", err)
	}
}

func TestControlLines(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)
	defer drv.Close()

	tests := []struct {
		name     string
		act      func() error
		expected string
		dtr, rts bool
	}{
		// DTR mask 0x20, RTS mask 0x40, complemented on the wire.
		{"drop DTR", func() error { return drv.SetDTR(false) }, "controlOut a4 00bf 0000", false, true},
		{"drop RTS", func() error { return drv.SetRTS(false) }, "controlOut a4 00ff 0000", false, false},
		{"raise both", func() error { return drv.SetControlLines(true, true) }, "controlOut a4 009f 0000", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.act(); err != nil {
				t.Fatalf("Setting control lines failed: %v", err)
			}
			trace := transport.Trace()
			if got := trace[len(trace)-1]; got != tt.expected {
				t.Errorf("Last write = %q, expected %q", got, tt.expected)
			}
			if drv.DTR() != tt.dtr || drv.RTS() != tt.rts {
				t.Errorf("State DTR=%v RTS=%v, expected DTR=%v RTS=%v",
					drv.DTR(), drv.RTS(), tt.dtr, tt.rts)
			}
		})
	}
}

func TestBreak(t *testing.T) {
	transport := newMockTransport()
	drv := openTestDriver(t, transport)
	defer drv.Close()

	if err := drv.Break(true); err != nil {
		t.Fatalf("Break(true) failed: %v", err)
	}
	trace := transport.Trace()
	if got := trace[len(trace)-1]; got != "controlOut 9a 1805 0000" {
		t.Errorf("Break(true) wrote %q", got)
	}

	if err := drv.Break(false); err != nil {
		t.Fatalf("Break(false) failed: %v", err)
	}
	trace = transport.Trace()
	if got := trace[len(trace)-1]; got != "controlOut 9a 1805 4001" {
		t.Errorf("Break(false) wrote %q", got)
	}
}

func TestControlOperationsRequireReady(t *testing.T) {
	drv, err := New(newMockTransport())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := drv.SetBaudRate(9600); !errors.Is(err, ErrNotReady) {
		t.Errorf("SetBaudRate = %v, expected ErrNotReady", err)
	}
	if err := drv.SetControlLines(true, true); !errors.Is(err, ErrNotReady) {
		t.Errorf("SetControlLines = %v, expected ErrNotReady", err)
	}
	if err := drv.Break(true); !errors.Is(err, ErrNotReady) {
		t.Errorf("Break = %v, expected ErrNotReady", err)
	}
}
