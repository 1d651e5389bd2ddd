package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/jsonupnp/internal/converter"
	"github.com/muurk/jsonupnp/internal/metrics"
	"github.com/muurk/jsonupnp/internal/proxy"
	"github.com/muurk/jsonupnp/internal/ssdp"
)

const mediaServerXML = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <device>
    <deviceType>urn:schemas-upnp-org:device:MediaServer:1</deviceType>
    <friendlyName>Living Room NAS</friendlyName>
    <manufacturer>Acme</manufacturer>
    <modelName>NAS-1</modelName>
    <UDN>uuid:nas-1</UDN>
  </device>
</root>`

const scpdXML = `<?xml version="1.0"?>
<scpd xmlns="urn:schemas-upnp-org:service-1-0">
  <specVersion><major>1</major><minor>0</minor></specVersion>
  <actionList>
    <action><name>Browse</name></action>
  </actionList>
  <serviceStateTable>
    <stateVariable sendEvents="no"><name>A_ARG_TYPE_ObjectID</name><dataType>string</dataType></stateVariable>
  </serviceStateTable>
</scpd>`

// nopTransport satisfies proxy.Transport without touching the network
type nopTransport struct {
	mu      sync.Mutex
	byebyes int
}

func (t *nopTransport) Listen(context.Context, ssdp.Handler) error { return nil }
func (t *nopTransport) Close() error                               { return nil }
func (t *nopTransport) SendAlive(context.Context) error            { return nil }
func (t *nopTransport) SendSearch(context.Context, string, int) error {
	return nil
}
func (t *nopTransport) SendResponse(context.Context, string, net.Addr) error {
	return nil
}
func (t *nopTransport) SendByebye(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byebyes++
	return nil
}

type testEnv struct {
	server      *Server
	service     *proxy.Service
	api         *httptest.Server
	device      *httptest.Server
	conversions *atomic.Int32
	deviceHits  *atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	deviceHits := &atomic.Int32{}
	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceHits.Add(1)
		switch r.URL.Path {
		case "/desc.xml":
			w.Header().Set("Content-Type", "text/xml; charset=utf-8")
			_, _ = io.WriteString(w, mediaServerXML)
		case "/scpd.xml":
			_, _ = io.WriteString(w, scpdXML)
		case "/broken.xml":
			_, _ = io.WriteString(w, "<root><device>")
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(device.Close)

	id := proxy.NewIdentity("proxy-test", "192.168.1.5", 5030)
	svc := proxy.NewService(id, &nopTransport{}, proxy.WithMetrics(metrics.New()))

	conversions := &atomic.Int32{}
	counting := func(raw []byte, docType converter.DocType) (any, error) {
		conversions.Add(1)
		return converter.Convert(raw, docType)
	}

	srv := New(&Config{Host: "127.0.0.1", CacheTTL: 3600}, svc, WithConverter(counting))
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(api.Close)

	return &testEnv{
		server:      srv,
		service:     svc,
		api:         api,
		device:      device,
		conversions: conversions,
		deviceHits:  deviceHits,
	}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.api.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) upsert(id, location string) {
	e.service.Registry().Upsert(id, location, "urn:schemas-upnp-org:device:MediaServer:1",
		"192.168.1.40", 1900, e.service.Clock().Now())
}

func TestDeviceJSON_ConvertsOnceThenCaches(t *testing.T) {
	env := newTestEnv(t)
	location := env.device.URL + "/desc.xml"
	path := "/device/json?url=" + location

	resp, first := env.get(t, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "max-age=3600", resp.Header.Get("Cache-Control"))

	resp, second := env.get(t, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int32(1), env.conversions.Load())
	assert.Equal(t, int32(1), env.deviceHits.Load())
	assert.JSONEq(t, string(first), string(second))

	var doc converter.DeviceDescription
	require.NoError(t, json.Unmarshal(first, &doc))
	assert.Equal(t, "Living Room NAS", doc.Device.FriendlyName)
	assert.Equal(t, 1, env.service.Cache().Len())
}

func TestServiceJSON_UsesSeparateCacheEntry(t *testing.T) {
	env := newTestEnv(t)
	location := env.device.URL + "/scpd.xml"

	resp, body := env.get(t, "/service/json?url="+location)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var doc converter.ServiceDescription
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Len(t, doc.Actions, 1)
	assert.Equal(t, "Browse", doc.Actions[0].Name)

	_, ok := env.service.Cache().Get(location)
	assert.False(t, ok, "service conversions must not occupy the device key")
	assert.Equal(t, 1, env.service.Cache().Len())
}

func TestDeviceJSON_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"missing url", "/device/json", http.StatusBadRequest, "url"},
		{"upstream error", "/device/json?url=" + env.device.URL + "/missing.xml", http.StatusBadGateway, "500"},
		{"malformed document", "/device/json?url=" + env.device.URL + "/broken.xml", http.StatusInternalServerError, ""},
		{"unsupported scheme", "/device/json?url=ftp://example.com/d.xml", http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.get(t, tt.path)
			require.Equal(t, tt.wantStatus, resp.StatusCode, string(body))

			var e errorBody
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
			if tt.wantError != "" {
				assert.Contains(t, e.Error, tt.wantError)
			}
		})
	}
	assert.Equal(t, 0, env.service.Cache().Len(), "failures are never cached")
}

func TestDeviceXML_Passthrough(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/device/xml?url="+env.device.URL+"/desc.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/xml; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, mediaServerXML, string(body))

	// Non-200 upstream bodies are relayed as-is
	resp, body = env.get(t, "/device/xml?url="+env.device.URL+"/missing.xml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "boom")

	resp, _ = env.get(t, "/device/xml")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	resp, _ = env.get(t, "/device/xml?url=ftp://example.com/d.xml")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/devices")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var empty DeviceList
	require.NoError(t, json.Unmarshal(body, &empty))
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Devices)

	location := "http://192.168.1.40:8080/desc.xml"
	env.upsert("nas-1", location)

	_, body = env.get(t, "/devices")
	var list DeviceList
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.Count)
	require.Len(t, list.Devices, 1)

	d := list.Devices[0]
	assert.Equal(t, "nas-1", d.UUID)
	assert.Equal(t, location, d.Location)
	assert.Equal(t, "urn:schemas-upnp-org:device:MediaServer:1", d.DeviceType)
	assert.Equal(t, "192.168.1.40:1900", d.Addr)
	assert.Equal(t, env.service.Identity().ConvertURL(location), d.JSONURL)
	assert.NotEmpty(t, d.LastSeenAt)
}

func TestGetDevice(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/devices/unknown-id")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "unknown-id")

	location := env.device.URL + "/desc.xml"
	env.upsert("nas-1", location)

	for i := 0; i < 2; i++ {
		resp, body = env.get(t, "/devices/nas-1")
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}

	var v struct {
		UUID        string                      `json:"uuid"`
		Location    string                      `json:"location"`
		Description converter.DeviceDescription `json:"description"`
	}
	require.NoError(t, json.Unmarshal(body, &v))
	assert.Equal(t, "nas-1", v.UUID)
	assert.Equal(t, "Living Room NAS", v.Description.Device.FriendlyName)

	// Always fetched fresh, never cached
	assert.Equal(t, int32(2), env.conversions.Load())
	assert.Equal(t, 0, env.service.Cache().Len())
}

func TestGetDevice_FetchFailure(t *testing.T) {
	env := newTestEnv(t)
	location := env.device.URL + "/missing.xml"
	env.upsert("broken-1", location)

	resp, body := env.get(t, "/devices/broken-1")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var e DeviceError
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "broken-1", e.UUID)
	assert.Equal(t, location, e.Location)
	assert.NotEmpty(t, e.Error)
}

func TestProxyDescription(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/proxy/description")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var d proxy.Description
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, proxy.DeviceType, d.DeviceType)
	assert.Equal(t, "uuid:proxy-test", d.UDN)
	require.Len(t, d.Services, 1)
	assert.Equal(t, proxy.ServiceType, d.Services[0].ServiceType)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.upsert("nas-1", "http://192.168.1.40/desc.xml")

	resp, body := env.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var h Health
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, Health{Status: "ok", UUID: "proxy-test", Devices: 1}, h)

	_, _ = env.get(t, "/device/json?url="+env.device.URL+"/desc.xml")
	resp, body = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "jsonupnp_devices_discovered_total 1")
	assert.Contains(t, string(body), "jsonupnp_cache_lookups_total")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Post(env.api.URL+"/devices", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func dialEvents(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(env.api.URL, "http") + "/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return env.server.Hub().Clients() == 1 },
		2*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestEvents_DiscoveredAndRemoved(t *testing.T) {
	env := newTestEnv(t)
	conn := dialEvents(t, env)

	env.upsert("nas-1", "http://192.168.1.40/desc.xml")
	e := readEvent(t, conn)
	assert.Equal(t, EventDiscovered, e.Type)
	assert.Equal(t, "nas-1", e.Device.UUID)

	// A repeat sighting is not a discovery
	env.upsert("nas-1", "http://192.168.1.40/desc.xml")

	res := env.service.Scheduler().Cleanup(env.service.Clock().Now().Add(2 * time.Hour))
	require.Len(t, res.Removed, 1)

	e = readEvent(t, conn)
	assert.Equal(t, EventRemoved, e.Type)
	assert.Equal(t, "nas-1", e.Device.UUID)
}

func TestHub_CloseDisconnectsSubscribers(t *testing.T) {
	env := newTestEnv(t)
	conn := dialEvents(t, env)

	env.server.Hub().Close()
	assert.Equal(t, 0, env.server.Hub().Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	resp, _ := env.get(t, "/events")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_StartAndShutdown(t *testing.T) {
	transport := &nopTransport{}
	svc := proxy.NewService(proxy.NewIdentity("proxy-run", "127.0.0.1", 0), transport)
	srv := New(&Config{Host: "127.0.0.1", Port: 0}, svc)

	require.NoError(t, srv.Listen())
	addr := srv.Addr()
	require.NotNil(t, addr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/healthz", addr))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	transport.mu.Lock()
	assert.Equal(t, 1, transport.byebyes)
	transport.mu.Unlock()

	err := svc.Stop(context.Background())
	assert.True(t, errors.Is(err, proxy.ErrNotRunning))
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	svc := proxy.NewService(proxy.NewIdentity("idle", "127.0.0.1", 0), &nopTransport{})
	srv := New(&Config{Host: "127.0.0.1"}, svc)
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestCacheKey(t *testing.T) {
	loc := "http://192.168.1.40/desc.xml"
	assert.Equal(t, loc, cacheKey(loc, converter.DocDevice))
	assert.NotEqual(t, loc, cacheKey(loc, converter.DocService))
}
