// Package upnpscan searches the standard UPnP multicast group directly,
// without going through a proxy.
package upnpscan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gossdp "github.com/koron/go-ssdp"
)

const (
	// DefaultWait is how long devices get to answer
	DefaultWait = 3 * time.Second

	// All is the wildcard search target
	All = gossdp.All

	// RootDevice is the root device search target
	RootDevice = gossdp.RootDevice
)

// Result is one answering device, merged across its USN variants
type Result struct {
	UUID     string
	Location string
	Server   string
	Types    []string
}

// searchFunc is go-ssdp's Search, swapped out in tests
type searchFunc func(searchType string, waitSec int, localAddr string) ([]gossdp.Service, error)

// Scanner performs M-SEARCH queries on 239.255.255.250:1900
type Scanner struct {
	// Target is the ST of the query
	Target string

	// Wait is the MX of the query and how long to collect answers
	Wait time.Duration

	// LocalAddr binds the query socket (empty = any)
	LocalAddr string

	search searchFunc
}

// NewScanner creates a scanner for all devices
func NewScanner() *Scanner {
	return &Scanner{Target: All, Wait: DefaultWait, search: gossdp.Search}
}

// Scan sends one M-SEARCH and returns the answering devices ordered by UUID
func (s *Scanner) Scan() ([]Result, error) {
	if s.Target == "" {
		return nil, errors.New("search target is required")
	}
	wait := int(s.Wait / time.Second)
	if wait < 1 {
		wait = 1
	}

	search := s.search
	if search == nil {
		search = gossdp.Search
	}

	services, err := search(s.Target, wait, s.LocalAddr)
	if err != nil {
		return nil, fmt.Errorf("ssdp search failed: %w", err)
	}
	return Merge(services), nil
}

// Merge groups service answers by device UUID. Answers without a UUID are
// keyed by location.
func Merge(services []gossdp.Service) []Result {
	byID := make(map[string]*Result)
	for _, svc := range services {
		id := uuidOf(svc.USN)
		if id == "" {
			id = svc.Location
		}
		if id == "" {
			continue
		}

		r, ok := byID[id]
		if !ok {
			r = &Result{UUID: id, Location: svc.Location, Server: svc.Server}
			byID[id] = r
		}
		if r.Server == "" {
			r.Server = svc.Server
		}
		if svc.Type != "" && !contains(r.Types, svc.Type) {
			r.Types = append(r.Types, svc.Type)
		}
	}

	results := make([]Result, 0, len(byID))
	for _, r := range byID {
		sort.Strings(r.Types)
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].UUID < results[j].UUID })
	return results
}

func uuidOf(usn string) string {
	if i := strings.Index(usn, "::"); i >= 0 {
		usn = usn[:i]
	}
	if len(usn) >= 5 && strings.EqualFold(usn[:5], "uuid:") {
		return strings.TrimSpace(usn[5:])
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
