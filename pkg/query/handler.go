package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/plml/oscquery-go/pkg/metrics"
	"github.com/plml/oscquery-go/pkg/tree"
	"github.com/plml/oscquery-go/pkg/version"
	"github.com/plml/oscquery-go/pkg/wire"
)

// Request kinds, used as the metrics label.
const (
	KindTree      = "tree"
	KindAttribute = "attribute"
	KindHostInfo  = "host_info"
	KindUpgrade   = "upgrade"
)

// attributes answerable with ?ATTR.
var attributes = []string{
	wire.ExtValue,
	wire.ExtType,
	wire.ExtRange,
	wire.ExtAccess,
	wire.ExtDescription,
	wire.ExtFullPath,
	wire.ExtContents,
}

// Config configures the handler.
type Config struct {
	// Name is reported as NAME in host info.
	Name string

	// OSCPort is the control port reported as OSC_PORT.
	OSCPort int

	// OSCTransport defaults to UDP.
	OSCTransport string

	// Subscriptions receives upgrade requests. When nil, upgrades fail and
	// host info reports LISTEN and PATH_ADDED as unsupported.
	Subscriptions http.Handler

	// Logger for operational messages. Nil uses slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Handler serves tree snapshots and host info for one tree.
type Handler struct {
	tree    *tree.Tree
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	router  chi.Router
}

// NewHandler creates the query handler for t.
func NewHandler(t *tree.Tree, config Config) *Handler {
	if config.OSCTransport == "" {
		config.OSCTransport = wire.TransportUDP
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		tree:    t,
		config:  config,
		logger:  logger.With("component", "query"),
		metrics: config.Metrics,
	}

	r := chi.NewRouter()
	r.Use(h.recoverer)
	r.Use(h.upgrades)
	r.Get("/*", h.serveGet)
	r.MethodNotAllowed(h.unsupported)
	r.NotFound(h.unsupported)
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// HostInfo returns the host description served at /?HOST_INFO.
func (h *Handler) HostInfo() *wire.HostInfo {
	subs := h.config.Subscriptions != nil
	return &wire.HostInfo{
		Name: h.config.Name,
		Extensions: map[string]bool{
			wire.ExtAccess:      true,
			wire.ExtValue:       true,
			wire.ExtRange:       true,
			wire.ExtType:        true,
			wire.ExtDescription: true,
			wire.ExtFullPath:    true,
			wire.ExtContents:    true,
			wire.ExtListen:      subs,
			wire.ExtPathAdded:   subs,
			wire.ExtPathRemoved: false,
			wire.ExtPathRenamed: false,
			wire.ExtPathChanged: false,
			wire.ExtClipmode:    false,
			wire.ExtCritical:    false,
			wire.ExtTags:        false,
			wire.ExtUnit:        false,
		},
		OSCPort:      h.config.OSCPort,
		OSCTransport: h.config.OSCTransport,
		Metadata:     map[string]string{"VERSION": version.Current},
	}
}

func (h *Handler) serveGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := "/" + chi.URLParam(r, "*")
	q := parseQuery(r.URL.RawQuery)

	if q.hostInfo {
		h.writeJSON(w, h.HostInfo())
		h.metrics.QueryRequest(KindHostInfo, time.Since(start))
		return
	}

	snap, ok := h.tree.Snapshot(path)
	if q.attribute == "" {
		if !ok {
			h.writeJSON(w, struct{}{})
		} else {
			h.writeJSON(w, snap)
		}
		h.metrics.QueryRequest(KindTree, time.Since(start))
		return
	}

	h.writeJSON(w, attribute(snap, q.attribute))
	h.metrics.QueryRequest(KindAttribute, time.Since(start))
}

// attribute picks one field of snap. Missing nodes and absent attributes
// yield an empty object.
func attribute(snap *wire.Node, name string) map[string]any {
	out := map[string]any{}
	if snap == nil {
		return out
	}
	switch name {
	case wire.ExtValue:
		if snap.Value != nil {
			out[name] = snap.Value
		}
	case wire.ExtType:
		out[name] = snap.Type
	case wire.ExtRange:
		if snap.Range != nil {
			out[name] = snap.Range
		}
	case wire.ExtAccess:
		if snap.Access != nil {
			out[name] = *snap.Access
		}
	case wire.ExtDescription:
		out[name] = snap.Description
	case wire.ExtFullPath:
		out[name] = snap.FullPath
	case wire.ExtContents:
		if snap.Contents != nil {
			out[name] = snap.Contents
		}
	}
	return out
}

type query struct {
	hostInfo  bool
	attribute string
}

// parseQuery reads the query markers. Keys and the host_info value are
// matched case-insensitively; unknown keys are ignored.
func parseQuery(raw string) query {
	var q query
	for _, chunk := range strings.Split(raw, "&") {
		if chunk == "" {
			continue
		}
		key, val, _ := strings.Cut(chunk, "=")
		key = strings.ToUpper(key)
		switch {
		case key == "HOST_INFO":
			q.hostInfo = true
		case key == "NAME" && strings.EqualFold(val, "host_info"):
			q.hostInfo = true
		case q.attribute == "" && isAttribute(key):
			q.attribute = key
		}
	}
	return q
}

func isAttribute(key string) bool {
	for _, a := range attributes {
		if a == key {
			return true
		}
	}
	return false
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		h.fail(w, fmt.Errorf("encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("write response", "error", err)
	}
}

// unsupported answers anything that is not a GET.
func (h *Handler) unsupported(w http.ResponseWriter, r *http.Request) {
	h.fail(w, fmt.Errorf("method %s not supported on %s", r.Method, r.URL.Path))
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Warn("query failed", "error", err)
	h.metrics.QueryError()
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// upgrades hands websocket upgrade requests to the subscription hub.
func (h *Handler) upgrades(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		if h.config.Subscriptions == nil {
			h.fail(w, errors.New("subscriptions not supported"))
			return
		}
		h.metrics.QueryRequest(KindUpgrade, 0)
		h.config.Subscriptions.ServeHTTP(w, r)
	})
}

// recoverer turns a handler panic into a 500 for that request.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.logger.Error("query handler panic",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()))
			h.metrics.QueryError()
			http.Error(w, fmt.Sprintf("internal error: %v", rec), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
