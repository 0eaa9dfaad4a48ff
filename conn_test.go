package sdbind

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sdbind/sdbind/fragments"
	"github.com/sdbind/sdbind/transport"
	"github.com/sdbind/sdbind/wire"
)

// pipeTransport adapts an in-memory pipe end to the transport
// interface. It cannot carry files.
type pipeTransport struct {
	net.Conn
}

func (p pipeTransport) GetFiles(n int) ([]*os.File, error) {
	if n == 0 {
		return nil, nil
	}
	return nil, errors.New("no file passing on a pipe")
}

func (p pipeTransport) WriteWithFiles(bs []byte, files []*os.File) (int, error) {
	if len(files) > 0 {
		return 0, errors.New("no file passing on a pipe")
	}
	return p.Write(bs)
}

// testBus plays the bus on the far end of a pipe. It runs on its own
// goroutine, so failures are reported with Errorf rather than Fatalf.
type testBus struct {
	t      *testing.T
	tr     transport.Transport
	serial uint32
}

func (b *testBus) read() (*msg, bool) {
	m, err := readMsg(b.tr)
	if err != nil {
		return nil, false
	}
	return m, true
}

func (b *testBus) send(hdr *header, sig string, args wire.TokenStream) {
	order := hdr.Order
	if order == nil {
		order = fragments.NativeEndian
	}
	body, _, err := marshalBody(order, args)
	if err != nil {
		b.t.Errorf("bus failed to encode %q body: %v", sig, err)
		return
	}
	b.serial++
	hdr.Version = 1
	hdr.Serial = 1000 + b.serial
	hdr.Signature = sig
	hdr.Length = uint32(len(body))
	if _, err := b.tr.Write(hdr.marshal()); err != nil {
		return
	}
	if len(body) > 0 {
		b.tr.Write(body)
	}
}

func (b *testBus) reply(m *msg, sig string, args wire.TokenStream) {
	b.send(&header{Type: msgTypeReturn, ReplySerial: m.Serial, Destination: m.Sender}, sig, args)
}

func (b *testBus) replyError(m *msg, name, detail string) {
	hdr := &header{Type: msgTypeError, ErrName: name, ReplySerial: m.Serial, Destination: m.Sender}
	b.send(hdr, "s", wire.TokenStream{wire.Basic('s', detail)})
}

func (b *testBus) expectHello() bool {
	m, ok := b.read()
	if !ok {
		return false
	}
	if m.Destination != busName || m.Member != "Hello" {
		b.t.Errorf("first call was %s.%s to %s, want Hello to the bus", m.Interface, m.Member, m.Destination)
	}
	b.reply(m, "s", wire.TokenStream{wire.Basic('s', ":1.99")})
	return true
}

// startConn connects a Conn to a scripted bus. script runs after the
// registration handshake.
func startConn(t *testing.T, script func(b *testBus)) *Conn {
	t.Helper()
	clientEnd, srvEnd := net.Pipe()
	bus := &testBus{t: t, tr: pipeTransport{srvEnd}}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if !bus.expectHello() {
			return
		}
		if script != nil {
			script(bus)
		}
	}()

	c, err := connect(testCtx(t), pipeTransport{clientEnd})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		<-done
	})
	return c
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestConnCallMethod(t *testing.T) {
	c := startConn(t, func(b *testBus) {
		m, ok := b.read()
		if !ok {
			return
		}
		if m.Destination != "com.example.Svc" || m.Path != "/com/example" ||
			m.Interface != "com.example.Iface" || m.Member != "Frob" || m.Signature != "su" {
			b.t.Errorf("unexpected call header %+v", m.header)
		}
		args, err := unmarshalBody(m.Order, m.Signature, m.body, nil)
		if err != nil {
			b.t.Errorf("decoding call body: %v", err)
		}
		if diff := cmp.Diff(args, []any{"x", uint32(7)}); diff != "" {
			b.t.Errorf("call args diff (-got+want):\n%s", diff)
		}
		b.reply(m, "sb", wire.TokenStream{wire.Basic('s', "done"), wire.Basic('b', true)})
	})

	if c.LocalName() != ":1.99" {
		t.Errorf("LocalName = %q, want :1.99", c.LocalName())
	}

	got, err := c.CallMethod(testCtx(t), "com.example.Svc", "/com/example", "com.example.Iface", "Frob", "su",
		wire.TokenStream{wire.Basic('s', "x"), wire.Basic('u', uint32(7))})
	if err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	if diff := cmp.Diff(got, []any{"done", true}); diff != "" {
		t.Errorf("reply diff (-got+want):\n%s", diff)
	}
}

func TestConnCallErrorReply(t *testing.T) {
	c := startConn(t, func(b *testBus) {
		m, ok := b.read()
		if !ok {
			return
		}
		b.replyError(m, "org.freedesktop.DBus.Error.UnknownMethod", "no Frob here")
	})

	_, err := c.CallMethod(testCtx(t), "com.example.Svc", "/com/example", "com.example.Iface", "Frob", "", nil)
	var ce CallError
	if !errors.As(err, &ce) {
		t.Fatalf("CallMethod = %v, want CallError", err)
	}
	if ce.Name != "org.freedesktop.DBus.Error.UnknownMethod" || ce.Detail != "no Frob here" {
		t.Errorf("CallError = %+v", ce)
	}
}

func TestConnGetProperty(t *testing.T) {
	c := startConn(t, func(b *testBus) {
		m, ok := b.read()
		if !ok {
			return
		}
		if m.Interface != ifaceProperties || m.Member != "Get" {
			b.t.Errorf("property read used %s.%s", m.Interface, m.Member)
		}
		args, err := unmarshalBody(m.Order, m.Signature, m.body, nil)
		if err != nil {
			b.t.Errorf("decoding Get args: %v", err)
		}
		if diff := cmp.Diff(args, []any{"com.example.Iface", "Version"}); diff != "" {
			b.t.Errorf("Get args diff (-got+want):\n%s", diff)
		}
		b.reply(m, "v", wire.TokenStream{wire.Open('v', "u"), wire.Basic('u', uint32(99)), wire.Close()})
	})

	got, err := c.GetProperty(testCtx(t), "com.example.Svc", "/com/example", "com.example.Iface", "Version")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if got != uint32(99) {
		t.Errorf("GetProperty = %v (%T), want 99", got, got)
	}
}

func TestConnIntrospect(t *testing.T) {
	const doc = `<node><interface name="com.example.Iface"/></node>`
	c := startConn(t, func(b *testBus) {
		m, ok := b.read()
		if !ok {
			return
		}
		if m.Interface != ifaceIntrospectable || m.Member != "Introspect" {
			b.t.Errorf("introspection used %s.%s", m.Interface, m.Member)
		}
		b.reply(m, "s", wire.TokenStream{wire.Basic('s', doc)})
	})

	got, err := c.Introspect(testCtx(t), "com.example.Svc", "/com/example")
	if err != nil {
		t.Fatalf("Introspect: %v", err)
	}
	if got != doc {
		t.Errorf("Introspect = %q, want %q", got, doc)
	}
}

func TestConnListNames(t *testing.T) {
	c := startConn(t, func(b *testBus) {
		m, ok := b.read()
		if !ok {
			return
		}
		b.reply(m, "as", wire.TokenStream{
			wire.Open('a', "s"),
			wire.Basic('s', ":1.99"),
			wire.Basic('s', "org.freedesktop.DBus"),
			wire.Close(),
		})
	})

	got, err := c.ListNames(testCtx(t))
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	want := []string{":1.99", "org.freedesktop.DBus"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("names diff (-got+want):\n%s", diff)
	}
}

func TestConnForeignByteOrder(t *testing.T) {
	c := startConn(t, func(b *testBus) {
		m, ok := b.read()
		if !ok {
			return
		}
		hdr := &header{Order: fragments.BigEndian, Type: msgTypeReturn, ReplySerial: m.Serial}
		b.send(hdr, "u", wire.TokenStream{wire.Basic('u', uint32(0x01020304))})
	})

	got, err := c.CallMethod(testCtx(t), "com.example.Svc", "/com/example", "com.example.Iface", "Frob", "", nil)
	if err != nil {
		t.Fatalf("CallMethod: %v", err)
	}
	if diff := cmp.Diff(got, []any{uint32(0x01020304)}); diff != "" {
		t.Errorf("reply diff (-got+want):\n%s", diff)
	}
}

func TestConnCallTimeout(t *testing.T) {
	c := startConn(t, func(b *testBus) {
		b.read() // swallow the call, never answer
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.CallMethod(ctx, "com.example.Svc", "/com/example", "com.example.Iface", "Frob", "", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("CallMethod = %v, want deadline exceeded", err)
	}
}

func TestConnCloseFailsPending(t *testing.T) {
	gotCall := make(chan struct{})
	c := startConn(t, func(b *testBus) {
		if _, ok := b.read(); ok {
			close(gotCall)
		}
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.CallMethod(testCtx(t), "com.example.Svc", "/com/example", "com.example.Iface", "Frob", "", nil)
		errCh <- err
	}()
	<-gotCall
	c.Close()

	if err := <-errCh; !errors.Is(err, net.ErrClosed) {
		t.Fatalf("pending call = %v, want net.ErrClosed", err)
	}
	if _, err := c.CallMethod(testCtx(t), "com.example.Svc", "/com/example", "com.example.Iface", "Frob", "", nil); !errors.Is(err, net.ErrClosed) {
		t.Errorf("call after Close = %v, want net.ErrClosed", err)
	}
}

func TestConnIgnoresSignals(t *testing.T) {
	c := startConn(t, func(b *testBus) {
		b.send(&header{
			Type:      msgTypeSignal,
			Path:      "/com/example",
			Interface: "com.example.Iface",
			Member:    "Changed",
		}, "s", wire.TokenStream{wire.Basic('s', "noise")})

		m, ok := b.read()
		if !ok {
			return
		}
		b.reply(m, "s", wire.TokenStream{wire.Basic('s', "still here")})
	})

	got, err := c.CallMethod(testCtx(t), "com.example.Svc", "/com/example", "com.example.Iface", "Frob", "", nil)
	if err != nil {
		t.Fatalf("CallMethod after signal: %v", err)
	}
	if diff := cmp.Diff(got, []any{"still here"}); diff != "" {
		t.Errorf("reply diff (-got+want):\n%s", diff)
	}
}

func TestConnRejectsIncomingCalls(t *testing.T) {
	checked := make(chan struct{})
	startConn(t, func(b *testBus) {
		defer close(checked)
		b.send(&header{
			Type:        msgTypeCall,
			Path:        "/",
			Interface:   "com.example.Iface",
			Member:      "Poke",
			Destination: ":1.99",
		}, "", nil)
		callSerial := 1000 + b.serial

		m, ok := b.read()
		if !ok {
			b.t.Error("no reply to an incoming call")
			return
		}
		if m.Type != msgTypeError {
			b.t.Errorf("incoming call got a %d reply, want an error", m.Type)
		}
		if m.ErrName != "org.freedesktop.DBus.Error.UnknownMethod" {
			b.t.Errorf("incoming call rejected with %q", m.ErrName)
		}
		if m.ReplySerial != callSerial {
			b.t.Errorf("error reply targets serial %d, want %d", m.ReplySerial, callSerial)
		}
	})
	<-checked
}

func TestConnHelloFailure(t *testing.T) {
	clientEnd, srvEnd := net.Pipe()
	go func() {
		b := &testBus{t: t, tr: pipeTransport{srvEnd}}
		m, ok := b.read()
		if !ok {
			return
		}
		b.replyError(m, "org.freedesktop.DBus.Error.AccessDenied", "nope")
		b.read() // drain until the client hangs up
	}()

	_, err := connect(testCtx(t), pipeTransport{clientEnd})
	var ce CallError
	if !errors.As(err, &ce) || ce.Name != "org.freedesktop.DBus.Error.AccessDenied" {
		t.Fatalf("connect = %v, want AccessDenied", err)
	}
}
