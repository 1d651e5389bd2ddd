package proxy

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/jsonupnp/internal/ssdp"
)

type sentResponse struct {
	target string
	to     net.Addr
}

// fakeTransport records every call in order
type fakeTransport struct {
	mu        sync.Mutex
	handler   ssdp.Handler
	calls     []string
	responses []sentResponse
	searches  []string
	failAlive bool
}

func (f *fakeTransport) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTransport) Listen(_ context.Context, h ssdp.Handler) error {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	f.record("listen")
	return nil
}

func (f *fakeTransport) Close() error {
	f.record("close")
	return nil
}

func (f *fakeTransport) SendAlive(context.Context) error {
	f.record("alive")
	if f.failAlive {
		return errors.New("network down")
	}
	return nil
}

func (f *fakeTransport) SendByebye(context.Context) error {
	f.record("byebye")
	return nil
}

func (f *fakeTransport) SendSearch(_ context.Context, target string, _ int) error {
	f.mu.Lock()
	f.searches = append(f.searches, target)
	f.mu.Unlock()
	f.record("search")
	return nil
}

func (f *fakeTransport) SendResponse(_ context.Context, target string, to net.Addr) error {
	f.mu.Lock()
	f.responses = append(f.responses, sentResponse{target: target, to: to})
	f.mu.Unlock()
	f.record("response")
	return nil
}

func (f *fakeTransport) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeTransport) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeTransport) deliver(msg *ssdp.Message) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(msg)
}

// fixedRand always returns v
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

var peer = &net.UDPAddr{IP: net.ParseIP("192.168.1.40"), Port: 1900}

func parse(t *testing.T, lines ...string) *ssdp.Message {
	t.Helper()
	raw := strings.Join(lines, "\r\n") + "\r\n\r\n"
	msg, err := ssdp.Parse([]byte(raw), peer)
	if err != nil {
		t.Fatalf("ssdp.Parse() error: %v", err)
	}
	return msg
}

func aliveMsg(t *testing.T, id, nt, location string, extra ...string) *ssdp.Message {
	t.Helper()
	lines := []string{
		"NOTIFY * HTTP/1.1",
		"HOST: 224.0.0.1:5007",
		"NT: " + nt,
		"NTS: ssdp:alive",
		"USN: uuid:" + id + "::" + nt,
	}
	if location != "" {
		lines = append(lines, "LOCATION: "+location)
	}
	return parse(t, append(lines, extra...)...)
}

func searchMsg(t *testing.T, st string, mx string, extra ...string) *ssdp.Message {
	t.Helper()
	lines := []string{
		"M-SEARCH * HTTP/1.1",
		"HOST: 224.0.0.1:5007",
		`MAN: "ssdp:discover"`,
		"ST: " + st,
	}
	if mx != "" {
		lines = append(lines, "MX: "+mx)
	}
	return parse(t, append(lines, extra...)...)
}

// eventually polls cond until it holds or the timeout elapses
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
