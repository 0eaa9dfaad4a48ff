package sdbind

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/sdbind/sdbind/fragments"
	"github.com/sdbind/sdbind/transport"
	"github.com/sdbind/sdbind/wire"
)

const (
	busName  = "org.freedesktop.DBus"
	busPath  = ObjectPath("/org/freedesktop/DBus")
	ifaceBus = "org.freedesktop.DBus"

	ifaceProperties     = "org.freedesktop.DBus.Properties"
	ifaceIntrospectable = "org.freedesktop.DBus.Introspectable"
)

// Messages larger than this are a protocol violation.
const maxMsgSize = 1 << 27

// SystemBus connects to the system bus.
func SystemBus(ctx context.Context) (*Conn, error) {
	if addr := os.Getenv("DBUS_SYSTEM_BUS_ADDRESS"); addr != "" {
		return connectTo(ctx, addr)
	}
	return Dial(ctx, "/run/dbus/system_bus_socket")
}

// SessionBus connects to the current user's session bus.
func SessionBus(ctx context.Context) (*Conn, error) {
	addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS")
	if addr == "" {
		return nil, errors.New("session bus not available")
	}
	return connectTo(ctx, addr)
}

// connectTo picks the first usable unix socket out of a DBus address
// string.
func connectTo(ctx context.Context, addr string) (*Conn, error) {
	for _, uri := range strings.Split(addr, ";") {
		path, ok := strings.CutPrefix(uri, "unix:path=")
		if !ok {
			continue
		}
		return Dial(ctx, path)
	}
	return nil, fmt.Errorf("no usable unix socket address in %q", addr)
}

// Dial connects to the bus listening on the unix socket at path.
func Dial(ctx context.Context, path string) (*Conn, error) {
	t, err := transport.DialUnix(ctx, path)
	if err != nil {
		return nil, err
	}
	return connect(ctx, t)
}

// connect completes the bus registration handshake over an
// authenticated transport.
func connect(ctx context.Context, t transport.Transport) (*Conn, error) {
	c := &Conn{
		t:     t,
		calls: map[uint32]*pendingCall{},
	}
	go c.readLoop()

	vals, err := c.CallMethod(ctx, busName, busPath, ifaceBus, "Hello", "", nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("getting DBus client ID: %w", err)
	}
	var id string
	var ok bool
	if len(vals) == 1 {
		id, ok = vals[0].(string)
	}
	if !ok {
		c.Close()
		return nil, fmt.Errorf("unexpected Hello reply %v", vals)
	}
	c.clientID = id
	return c, nil
}

// Conn is a connection to a DBus message bus. It implements [Bus].
//
// Conn is a pure client: it initiates method calls and reads the
// replies. Incoming calls are answered with an error, and signals
// are discarded.
type Conn struct {
	t        transport.Transport
	clientID string

	writeMu sync.Mutex

	mu         sync.Mutex
	closed     bool
	calls      map[uint32]*pendingCall
	lastSerial uint32
}

var _ Bus = (*Conn)(nil)

type pendingCall struct {
	notify chan struct{}
	vals   []any
	err    error
}

type msg struct {
	header
	body  []byte
	files []*os.File
}

// Close closes the connection. Calls still waiting for a reply fail
// with [net.ErrClosed].
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	pend := c.calls
	c.calls = map[uint32]*pendingCall{}
	c.mu.Unlock()

	for p := range maps.Values(pend) {
		p.err = net.ErrClosed
		close(p.notify)
	}
	return c.t.Close()
}

// LocalName returns the connection's unique bus name.
func (c *Conn) LocalName() string {
	return c.clientID
}

// Introspect fetches the introspection document of a remote object.
func (c *Conn) Introspect(ctx context.Context, dest string, path ObjectPath) (string, error) {
	vals, err := c.CallMethod(ctx, dest, path, ifaceIntrospectable, "Introspect", "", nil)
	if err != nil {
		return "", err
	}
	if len(vals) != 1 {
		return "", fmt.Errorf("Introspect returned %d values, want 1", len(vals))
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("Introspect returned %T, want string", vals[0])
	}
	return s, nil
}

// GetProperty reads a property of a remote object. The variant
// wrapping the value is unwrapped before returning.
func (c *Conn) GetProperty(ctx context.Context, dest string, path ObjectPath, iface, name string) (any, error) {
	args := wire.TokenStream{wire.Basic('s', iface), wire.Basic('s', name)}
	vals, err := c.CallMethod(ctx, dest, path, ifaceProperties, "Get", "ss", args)
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("Get returned %d values, want 1", len(vals))
	}
	return vals[0], nil
}

// ListNames returns the bus names currently present on the bus.
func (c *Conn) ListNames(ctx context.Context) ([]string, error) {
	vals, err := c.CallMethod(ctx, busName, busPath, ifaceBus, "ListNames", "", nil)
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("ListNames returned %d values, want 1", len(vals))
	}
	raw, ok := vals[0].([]any)
	if !ok {
		return nil, fmt.Errorf("ListNames returned %T, want a string array", vals[0])
	}
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("ListNames returned a %T name", v)
		}
		names = append(names, s)
	}
	return names, nil
}

// CallMethod calls a method on a remote object and returns the
// decoded reply values. sig must describe args.
func (c *Conn) CallMethod(ctx context.Context, dest string, path ObjectPath, iface, method, sig string, args wire.TokenStream) ([]any, error) {
	if err := wire.Check(sig); err != nil {
		return nil, err
	}
	body, files, err := marshalBody(fragments.NativeEndian, args)
	if err != nil {
		return nil, err
	}

	serial, pending := func() (uint32, *pendingCall) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return 0, nil
		}
		c.lastSerial++
		pend := &pendingCall{notify: make(chan struct{})}
		c.calls[c.lastSerial] = pend
		return c.lastSerial, pend
	}()
	if pending == nil {
		return nil, net.ErrClosed
	}
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.calls[serial] == pending {
			delete(c.calls, serial)
		}
	}()

	hdr := header{
		Type:        msgTypeCall,
		Version:     1,
		Serial:      serial,
		Destination: dest,
		Path:        path,
		Interface:   iface,
		Member:      method,
		Length:      uint32(len(body)),
		Signature:   sig,
		NumFDs:      uint32(len(files)),
	}
	if err := hdr.Valid(); err != nil {
		return nil, err
	}
	if err := c.writeMsg(&hdr, body, files); err != nil {
		return nil, err
	}

	select {
	case <-pending.notify:
		return pending.vals, pending.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) writeMsg(hdr *header, body []byte, files []*os.File) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.t.WriteWithFiles(hdr.marshal(), files); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := c.t.Write(body); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) readLoop() {
	for {
		m, err := readMsg(c.t)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.EOF) {
				log.Printf("dbus: read error: %v", err)
			}
			c.failCalls(err)
			return
		}
		if err := c.dispatch(m); err != nil {
			// Semantic errors in one message do not kill the
			// connection.
			log.Printf("dbus: %v", err)
		}
	}
}

func (c *Conn) failCalls(err error) {
	c.mu.Lock()
	pend := c.calls
	c.calls = map[uint32]*pendingCall{}
	c.mu.Unlock()

	for p := range maps.Values(pend) {
		p.err = err
		close(p.notify)
	}
}

// readMsg reads one complete message from t. Must not be called
// concurrently.
func readMsg(t transport.Transport) (*msg, error) {
	var fixed [16]byte
	if _, err := io.ReadFull(t, fixed[:]); err != nil {
		return nil, err
	}
	d := fragments.Decoder{In: fixed[:]}
	if err := d.ByteOrderFlag(); err != nil {
		return nil, err
	}
	if _, err := d.Read(3); err != nil { // type, flags, version
		return nil, err
	}
	bodyLen, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if _, err := d.Uint32(); err != nil { // serial
		return nil, err
	}
	fieldsLen, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if bodyLen > maxMsgSize || fieldsLen > maxMsgSize {
		return nil, fmt.Errorf("oversized message, %d header field bytes and %d body bytes", fieldsLen, bodyLen)
	}

	hdrLen := 16 + int(fieldsLen)
	padded := (hdrLen + 7) &^ 7
	rest := make([]byte, padded-16+int(bodyLen))
	if _, err := io.ReadFull(t, rest); err != nil {
		return nil, err
	}
	hdrBuf := make([]byte, 0, padded)
	hdrBuf = append(hdrBuf, fixed[:]...)
	hdrBuf = append(hdrBuf, rest[:padded-16]...)

	hdr, err := parseHeader(hdrBuf)
	if err != nil {
		return nil, err
	}
	m := &msg{header: *hdr, body: rest[padded-16:]}
	if hdr.NumFDs > 0 {
		m.files, err = t.GetFiles(int(hdr.NumFDs))
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (c *Conn) dispatch(m *msg) error {
	if err := m.Valid(); err != nil {
		closeFiles(m.files)
		return fmt.Errorf("received invalid header: %w", err)
	}
	switch m.Type {
	case msgTypeReturn:
		return c.dispatchReturn(m)
	case msgTypeError:
		return c.dispatchError(m)
	case msgTypeCall:
		closeFiles(m.files)
		return c.rejectCall(m)
	default:
		// Signals and unknown message types are discarded.
		closeFiles(m.files)
		return nil
	}
}

func (c *Conn) dispatchReturn(m *msg) error {
	pending := c.takeCall(m.ReplySerial)
	if pending == nil {
		// Reply to a canceled call.
		closeFiles(m.files)
		return nil
	}
	vals, err := unmarshalBody(m.Order, m.Signature, m.body, m.files)
	if err != nil {
		closeFiles(m.files)
		pending.err = fmt.Errorf("decoding reply: %w", err)
	} else {
		pending.vals = vals
	}
	close(pending.notify)
	return nil
}

func (c *Conn) dispatchError(m *msg) error {
	pending := c.takeCall(m.ReplySerial)
	closeFiles(m.files)
	if pending == nil {
		return nil
	}
	var detail string
	if strings.HasPrefix(m.Signature, "s") || strings.HasPrefix(m.Signature, "(s") {
		if s, err := (&fragments.Decoder{Order: m.Order, In: m.body}).String(); err == nil {
			detail = s
		}
	}
	pending.err = CallError{Name: m.ErrName, Detail: detail}
	close(pending.notify)
	return nil
}

// rejectCall answers a stray incoming method call. Conn is a pure
// client, so every call gets an error reply.
func (c *Conn) rejectCall(m *msg) error {
	if !m.WantReply() {
		return nil
	}
	serial := c.nextSerial()
	if serial == 0 {
		return nil
	}
	detail := fmt.Sprintf("unknown method %s.%s", m.Interface, m.Member)
	body, _, err := marshalBody(fragments.NativeEndian, wire.TokenStream{wire.Basic('s', detail)})
	if err != nil {
		return err
	}
	hdr := header{
		Type:        msgTypeError,
		Version:     1,
		Serial:      serial,
		ErrName:     "org.freedesktop.DBus.Error.UnknownMethod",
		ReplySerial: m.Serial,
		Destination: m.Sender,
		Signature:   "s",
		Length:      uint32(len(body)),
	}
	return c.writeMsg(&hdr, body, nil)
}

func (c *Conn) takeCall(serial uint32) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := c.calls[serial]
	delete(c.calls, serial)
	return ret
}

func (c *Conn) nextSerial() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	c.lastSerial++
	return c.lastSerial
}
