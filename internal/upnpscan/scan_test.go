package upnpscan

import (
	"errors"
	"testing"
	"time"

	gossdp "github.com/koron/go-ssdp"
)

func TestMerge(t *testing.T) {
	services := []gossdp.Service{
		{Type: "upnp:rootdevice", USN: "uuid:nas-1::upnp:rootdevice", Location: "http://192.168.1.40/desc.xml", Server: "Linux UPnP/1.0"},
		{Type: "urn:schemas-upnp-org:device:MediaServer:1", USN: "uuid:nas-1::urn:schemas-upnp-org:device:MediaServer:1", Location: "http://192.168.1.40/desc.xml"},
		{Type: "upnp:rootdevice", USN: "uuid:nas-1::upnp:rootdevice", Location: "http://192.168.1.40/desc.xml"},
		{Type: "upnp:rootdevice", USN: "uuid:router-1::upnp:rootdevice", Location: "http://192.168.1.1/root.xml"},
		{Type: "upnp:rootdevice", USN: "no-uuid", Location: "http://192.168.1.9/d.xml"},
		{Type: "upnp:rootdevice"},
	}

	got := Merge(services)
	if len(got) != 3 {
		t.Fatalf("Merge() returned %d results, want 3: %+v", len(got), got)
	}

	// Sorted by key: location-keyed entries sort before uuids
	if got[0].UUID != "http://192.168.1.9/d.xml" || got[1].UUID != "nas-1" || got[2].UUID != "router-1" {
		t.Errorf("unexpected order: %q %q %q", got[0].UUID, got[1].UUID, got[2].UUID)
	}

	nas := got[1]
	if len(nas.Types) != 2 {
		t.Errorf("nas types = %v, want 2 distinct", nas.Types)
	}
	if nas.Server != "Linux UPnP/1.0" {
		t.Errorf("nas server = %q", nas.Server)
	}
}

func TestScanner_Scan(t *testing.T) {
	var gotTarget string
	var gotWait int
	s := NewScanner()
	s.Wait = 500 * time.Millisecond
	s.search = func(st string, wait int, _ string) ([]gossdp.Service, error) {
		gotTarget, gotWait = st, wait
		return []gossdp.Service{{Type: "upnp:rootdevice", USN: "uuid:a::upnp:rootdevice", Location: "http://a/d.xml"}}, nil
	}

	results, err := s.Scan()
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if gotTarget != All || gotWait != 1 {
		t.Errorf("search(%q, %d), want (%q, 1)", gotTarget, gotWait, All)
	}
	if len(results) != 1 || results[0].UUID != "a" {
		t.Errorf("Scan() = %+v", results)
	}
}

func TestScanner_Errors(t *testing.T) {
	s := NewScanner()
	s.search = func(string, int, string) ([]gossdp.Service, error) {
		return nil, errors.New("no multicast")
	}
	if _, err := s.Scan(); err == nil {
		t.Error("expected search error")
	}

	s.Target = ""
	if _, err := s.Scan(); err == nil {
		t.Error("expected error for empty target")
	}
}
