package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/muurk/jsonupnp/internal/converter"
	"github.com/muurk/jsonupnp/internal/logging"
	"github.com/muurk/jsonupnp/internal/proxyerr"
	"github.com/muurk/jsonupnp/internal/registry"
	"github.com/muurk/jsonupnp/internal/urls"
)

// DeviceView is a registry entry as served by the API
type DeviceView struct {
	UUID        string  `json:"uuid"`
	Location    string  `json:"location"`
	DeviceType  string  `json:"deviceType"`
	Addr        string  `json:"addr"`
	LastSeen    float64 `json:"lastSeen"`   // seconds since proxy start
	LastSeenAt  string  `json:"lastSeenAt"` // RFC 3339 wall time
	JSONURL     string  `json:"jsonUrl,omitempty"`
	Description any     `json:"description,omitempty"`
}

// DeviceList is the /devices response
type DeviceList struct {
	Devices []DeviceView `json:"devices"`
	Count   int          `json:"count"`
}

// DeviceError is the /devices/{uuid} body when the refresh fails
type DeviceError struct {
	UUID     string `json:"uuid"`
	Location string `json:"location"`
	Error    string `json:"error"`
}

// Health is the /healthz response
type Health struct {
	Status  string `json:"status"`
	UUID    string `json:"uuid"`
	Devices int    `json:"devices"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Handler returns the API router
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc(urls.ProxyDescription, s.handleProxyDescription).Methods(http.MethodGet)
	r.HandleFunc(urls.DeviceJSON, s.handleConvert(converter.DocDevice)).Methods(http.MethodGet)
	r.HandleFunc(urls.ServiceJSON, s.handleConvert(converter.DocService)).Methods(http.MethodGet)
	r.HandleFunc(urls.DeviceXML, s.handlePassthrough).Methods(http.MethodGet)
	r.HandleFunc(urls.Devices, s.handleListDevices).Methods(http.MethodGet)
	r.HandleFunc(urls.DeviceByID, s.handleGetDevice).Methods(http.MethodGet)
	r.HandleFunc(urls.Events, s.hub.ServeWS).Methods(http.MethodGet)
	r.HandleFunc(urls.Health, s.handleHealth).Methods(http.MethodGet)
	r.Handle(urls.Metrics, s.service.Metrics().Handler()).Methods(http.MethodGet)

	return r
}

func (s *Server) handleProxyDescription(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Identity().Description())
}

// cacheKey keeps device and service conversions of one URL apart. Device
// documents use the location itself.
func cacheKey(location string, docType converter.DocType) string {
	if docType == converter.DocDevice {
		return location
	}
	return docType.String() + " " + location
}

func (s *Server) handleConvert(docType converter.DocType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := r.URL.Query().Get(urls.URLParam)
		if location == "" {
			writeError(w, proxyerr.NewMissingParameterError(urls.URLParam))
			return
		}

		m := s.service.Metrics()
		key := cacheKey(location, docType)

		if cached, ok := s.service.Cache().Get(key); ok {
			m.CacheLookup(true)
			s.writeConverted(w, cached)
			return
		}
		m.CacheLookup(false)

		converted, err := s.fetchAndConvert(r, location, docType)
		if err != nil {
			writeError(w, err)
			return
		}

		s.service.Cache().Put(key, converted)
		s.writeConverted(w, converted)
	}
}

func (s *Server) fetchAndConvert(r *http.Request, location string, docType converter.DocType) (any, error) {
	doc, err := s.fetcher.Fetch(r.Context(), location)
	if err != nil {
		return nil, err
	}

	converted, err := s.convert(doc.Body, docType)
	s.service.Metrics().Conversion(err == nil)
	if err != nil {
		if !proxyerr.IsConversion(err) {
			err = proxyerr.NewConversionError("failed to convert description", err)
		}
		logging.Warn("Conversion failed",
			zap.String("location", location),
			zap.String("doc_type", docType.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return converted, nil
}

func (s *Server) writeConverted(w http.ResponseWriter, v any) {
	if s.config.CacheTTL > 0 {
		w.Header().Set("Cache-Control", "max-age="+strconv.Itoa(s.config.CacheTTL))
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handlePassthrough(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get(urls.URLParam)
	if location == "" {
		http.Error(w, proxyerr.NewMissingParameterError(urls.URLParam).Message, http.StatusBadRequest)
		return
	}

	doc, err := s.fetcher.FetchRaw(r.Context(), location)
	if err != nil {
		http.Error(w, proxyerr.Message(err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

func (s *Server) view(d registry.Device) DeviceView {
	return DeviceView{
		UUID:       d.ID,
		Location:   d.Location,
		DeviceType: d.Role,
		Addr:       d.Address(),
		LastSeen:   s.service.Monotonic(d.LastSeen),
		LastSeenAt: d.LastSeen.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	identity := s.service.Identity()
	devices := s.service.Registry().List()

	list := DeviceList{Devices: make([]DeviceView, 0, len(devices)), Count: len(devices)}
	for _, d := range devices {
		v := s.view(d)
		v.JSONURL = identity.ConvertURL(d.Location)
		list.Devices = append(list.Devices, v)
	}

	writeJSON(w, http.StatusOK, list)
}

// handleGetDevice always re-fetches and re-converts; it never reads or
// fills the conversion cache
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["uuid"]

	d, err := s.service.Registry().Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	converted, err := s.fetchAndConvert(r, d.Location, converter.DocDevice)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, DeviceError{
			UUID:     d.ID,
			Location: d.Location,
			Error:    proxyerr.Message(err),
		})
		return
	}

	v := s.view(d)
	v.Description = converted
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Health{
		Status:  "ok",
		UUID:    s.service.Identity().UUID,
		Devices: s.service.Registry().Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := proxyerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.Warn("Request failed", zap.Int("status_code", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: proxyerr.Message(err)})
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade pass through the middleware
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func addrString(host string, port int) string {
	return net.JoinHostPort(host, fmt.Sprint(port))
}
