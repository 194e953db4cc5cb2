package monitors

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/reusee/trials/presenters"
	"github.com/reusee/trials/signals"
	"github.com/reusee/trials/tasks"
)

// Monitor serves the latest block status to the experimenter. It never writes back into a run.
type Monitor struct {
	status atomic.Pointer[tasks.Status]
	frames *presenters.HTML
	router chi.Router
}

var _ tasks.Observer = new(Monitor)

var _ http.Handler = new(Monitor)

// New serves frames rendered by frames when it is not nil.
func New(frames *presenters.HTML) *Monitor {
	m := &Monitor{
		frames: frames,
	}
	r := chi.NewRouter()
	r.Get("/", m.handleFrame)
	r.Get("/status", m.handleStatus)
	r.Get("/signals", m.handleSignals)
	r.Get("/signals/{id}", m.handleSignal)
	m.router = r
	return m
}

func (m *Monitor) Observe(status tasks.Status) {
	m.status.Store(&status)
}

func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

func (m *Monitor) current(w http.ResponseWriter) (*tasks.Status, bool) {
	status := m.status.Load()
	if status == nil {
		http.Error(w, "no block running", http.StatusServiceUnavailable)
		return nil, false
	}
	return status, true
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := m.current(w)
	if !ok {
		return
	}
	writeJSON(w, status)
}

func (m *Monitor) handleSignals(w http.ResponseWriter, r *http.Request) {
	status, ok := m.current(w)
	if !ok {
		return
	}
	writeJSON(w, status.Signals)
}

func (m *Monitor) handleSignal(w http.ResponseWriter, r *http.Request) {
	status, ok := m.current(w)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 16)
	if err != nil {
		http.Error(w, "bad signal id", http.StatusBadRequest)
		return
	}
	value, ok := status.Signals[signals.ID(id)]
	if !ok {
		http.Error(w, "no value", http.StatusNotFound)
		return
	}
	writeJSON(w, value)
}

func (m *Monitor) handleFrame(w http.ResponseWriter, r *http.Request) {
	if m.frames == nil {
		http.Error(w, "no frames", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(m.frames.Frame())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
