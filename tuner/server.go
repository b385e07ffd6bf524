// Package tuner exposes the running simulation's tunable parameters
// over HTTP and streams telemetry frames over a websocket, playing the
// role of the companion config server the watch build polls: named
// JSON presets live in a directory, one of them is active, and the
// active one is served on demand.
package tuner

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/slosh/telemetry"
)

// Params is the JSON view of the live-tunable solver parameters.
type Params struct {
	FlipRatio         float64 `json:"flip_ratio"`
	OverRelaxation    float64 `json:"over_relaxation"`
	NumPressureIters  int     `json:"num_pressure_iters"`
	NumParticleIters  int     `json:"num_particle_iters"`
	GravityX          float64 `json:"gravity_x"`
	GravityY          float64 `json:"gravity_y"`
	CompensateDrift   bool    `json:"compensate_drift"`
	SeparateParticles bool    `json:"separate_particles"`
	DynamicColoring   bool    `json:"dynamic_coloring"`
}

// presetList is the JSON view of the preset inventory.
type presetList struct {
	Active    string   `json:"active"`
	Available []string `json:"available"`
}

// Server serves the active parameter set and broadcasts stats frames.
// Parameter updates are staged; the simulation loop drains them with
// Pending between steps so the kernels never see a torn update.
type Server struct {
	mu           sync.Mutex
	params       Params
	dirty        bool
	presetDir    string
	activePreset string
	clients      map[*websocket.Conn]bool

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New creates a tuner server bound to addr with the initial parameters.
// presetDir may be empty, which disables the preset endpoints; when it
// names a directory of JSON preset files, "default" (or the first
// preset found) becomes the active one.
func New(addr string, initial Params, presetDir string) *Server {
	s := &Server{
		params:    initial,
		presetDir: presetDir,
		clients:   make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	if presetDir != "" {
		if names, err := s.discoverPresets(); err != nil {
			slog.Error("preset discovery failed", "dir", presetDir, "error", err)
		} else if len(names) > 0 {
			s.activePreset = pickDefault(names)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/params", s.handleParams)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/presets", s.handlePresets)
	mux.HandleFunc("/ws", s.handleWS)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("tuner server stopped", "error", err)
		}
	}()
	slog.Info("tuner listening", "addr", s.httpSrv.Addr, "preset_dir", s.presetDir)
}

// Pending returns the staged parameters and whether they changed since
// the last call.
func (s *Server) Pending() (Params, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return s.params, false
	}
	s.dirty = false
	return s.params, true
}

// discoverPresets scans the preset directory for JSON files and returns
// their names (without extension), sorted.
func (s *Server) discoverPresets() ([]string, error) {
	entries, err := os.ReadDir(s.presetDir)
	if err != nil {
		return nil, fmt.Errorf("reading preset directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".json") {
			names = append(names, name[:len(name)-len(".json")])
		}
	}
	sort.Strings(names)
	return names, nil
}

// pickDefault prefers a preset named "default", falling back to the
// first discovered name.
func pickDefault(names []string) string {
	for _, n := range names {
		if n == "default" {
			return n
		}
	}
	return names[0]
}

// loadPreset reads and validates one named preset file.
func (s *Server) loadPreset(name string) (Params, error) {
	var p Params
	path := filepath.Join(s.presetDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading preset %q: %w", name, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing preset %q: %w", name, err)
	}
	return p, nil
}

// handleParams serves the active parameters on GET and stages an update
// on POST.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		p := s.params
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)

	case http.MethodPost:
		var p Params
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, fmt.Sprintf("decoding params: %v", err), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.params = p
		s.dirty = true
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleConfig serves the active preset file, read on demand so edits
// to the file are picked up without a restart.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	dir, active := s.presetDir, s.activePreset
	s.mu.Unlock()

	if dir == "" || active == "" {
		http.Error(w, "no active configuration selected", http.StatusNotFound)
		return
	}

	path := filepath.Join(dir, active+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, fmt.Sprintf("config file not found: %v", err), http.StatusNotFound)
		return
	}
	if !json.Valid(data) {
		http.Error(w, fmt.Sprintf("invalid JSON in preset %q", active), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write(data)
}

// handlePresets lists the preset inventory on GET and switches the
// active preset on POST, staging the switched-to parameters.
func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	dir := s.presetDir
	s.mu.Unlock()
	if dir == "" {
		http.Error(w, "presets disabled: no preset directory configured", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		names, err := s.discoverPresets()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.mu.Lock()
		list := presetList{Active: s.activePreset, Available: names}
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(list)

	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("decoding request: %v", err), http.StatusBadRequest)
			return
		}
		names, err := s.discoverPresets()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		found := false
		for _, n := range names {
			if n == req.Name {
				found = true
				break
			}
		}
		if !found {
			http.Error(w, fmt.Sprintf("unknown preset %q", req.Name), http.StatusNotFound)
			return
		}
		p, err := s.loadPreset(req.Name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		s.mu.Lock()
		s.activePreset = req.Name
		s.params = p
		s.dirty = true
		s.mu.Unlock()
		slog.Info("preset activated", "name", req.Name)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWS upgrades the connection and registers it for stats frames.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			slog.Error("websocket upgrade failed", "error", err)
		}
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	// Drain (and discard) client messages so pings are processed and
	// closes are noticed.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a stats frame to every connected client, dropping
// connections that fail to accept it.
func (s *Server) Broadcast(stats telemetry.WindowStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.clients {
		if err := conn.WriteJSON(stats); err != nil {
			delete(s.clients, conn)
			conn.Close()
		}
	}
}

// Close shuts the server down and disconnects all clients.
func (s *Server) Close() error {
	s.mu.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.mu.Unlock()
	return s.httpSrv.Close()
}
