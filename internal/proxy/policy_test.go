package proxy

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"ssdp:all", true},
		{"urn:schemas-json-upnp-org:device:x:1", true},
		{"urn:schemas-JSON-UPNP-org:device:x:1", true},
		{"urn:example:device:Proxy:1", true},
		{"urn:schemas-upnp-org:device:MediaServer:1", false},
		{"upnp:rootdevice", false},
		{"SSDP:ALL", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := Matches(tt.target); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}

func TestPolicy_DelayBounds(t *testing.T) {
	tests := []struct {
		name    string
		rand    float64
		maxWait int
		want    time.Duration
	}{
		{"zero draw", 0, 5, 0},
		{"half of mx", 0.5, 4, 2 * time.Second},
		{"default mx when absent", 0.5, 0, 1500 * time.Millisecond},
		{"negative mx uses default", 1, -2, 3 * time.Second},
		{"draw above one is clamped", 1.5, 2, 2 * time.Second},
		{"negative draw is clamped", -0.1, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(&fakeTransport{}, clock.NewMock(), fixedRand(tt.rand), nil)
			if got := p.Delay(tt.maxWait); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.maxWait, got, tt.want)
			}
		})
	}
}

func TestPolicy_DelayDefaultRandWithinRange(t *testing.T) {
	p := NewPolicy(&fakeTransport{}, nil, nil, nil)
	for _, m := range []int{1, 3, 10} {
		for i := 0; i < 500; i++ {
			d := p.Delay(m)
			if d < 0 || d > time.Duration(m)*time.Second {
				t.Fatalf("Delay(%d) = %v out of range", m, d)
			}
		}
	}
}

func TestPolicy_RespondSendsToSearcher(t *testing.T) {
	ft := &fakeTransport{}
	p := NewPolicy(ft, clock.New(), fixedRand(0), nil)

	msg := searchMsg(t, "ssdp:all", "3")
	if !p.Respond(context.Background(), msg) {
		t.Fatal("Respond() = false, want true")
	}

	if len(ft.responses) != 1 {
		t.Fatalf("responses = %d, want 1", len(ft.responses))
	}
	if ft.responses[0].target != "ssdp:all" {
		t.Errorf("response target = %q", ft.responses[0].target)
	}
	if ft.responses[0].to.String() != peer.String() {
		t.Errorf("response sent to %v, want %v", ft.responses[0].to, peer)
	}
}

func TestPolicy_RespondIgnoresOtherTargets(t *testing.T) {
	ft := &fakeTransport{}
	p := NewPolicy(ft, clock.New(), fixedRand(0), nil)

	if p.Respond(context.Background(), searchMsg(t, "urn:schemas-upnp-org:device:MediaServer:1", "1")) {
		t.Error("Respond() = true for a MediaServer search")
	}
	if ft.count("response") != 0 {
		t.Error("no response should be sent")
	}
}

func TestPolicy_RespondAbandonedOnCancel(t *testing.T) {
	ft := &fakeTransport{}
	p := NewPolicy(ft, clock.New(), fixedRand(1), nil)

	msg := searchMsg(t, "ssdp:all", "3")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		done <- p.Respond(ctx, msg)
	}()

	cancel()
	select {
	case ok := <-done:
		if ok {
			t.Error("Respond() = true after cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Respond() did not return after cancellation")
	}
	if ft.count("response") != 0 {
		t.Error("cancelled response must not be sent")
	}
}
