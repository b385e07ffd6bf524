package tuner

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestParamsRoundTrip(t *testing.T) {
	initial := Params{FlipRatio: 0.9, OverRelaxation: 1.9, NumPressureIters: 50}
	s := New(":0", initial, "")

	// GET returns the active parameters.
	rec := httptest.NewRecorder()
	s.handleParams(rec, httptest.NewRequest(http.MethodGet, "/params", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /params = %d, want 200", rec.Code)
	}
	var got Params
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got != initial {
		t.Errorf("GET returned %+v, want %+v", got, initial)
	}

	// Nothing pending before any POST.
	if _, changed := s.Pending(); changed {
		t.Error("Pending reported a change before any update")
	}

	// POST stages an update.
	update := Params{FlipRatio: 0.5, OverRelaxation: 1.5, NumPressureIters: 30, CompensateDrift: true}
	body, _ := json.Marshal(update)
	rec = httptest.NewRecorder()
	s.handleParams(rec, httptest.NewRequest(http.MethodPost, "/params", bytes.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("POST /params = %d, want 204", rec.Code)
	}

	p, changed := s.Pending()
	if !changed {
		t.Fatal("Pending did not report the staged update")
	}
	if p != update {
		t.Errorf("Pending returned %+v, want %+v", p, update)
	}

	// The change flag is consumed.
	if _, changed := s.Pending(); changed {
		t.Error("Pending reported the same update twice")
	}
}

func TestParamsRejectsBadRequests(t *testing.T) {
	s := New(":0", Params{}, "")

	rec := httptest.NewRecorder()
	s.handleParams(rec, httptest.NewRequest(http.MethodPost, "/params", bytes.NewReader([]byte("{"))))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed POST = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleParams(rec, httptest.NewRequest(http.MethodDelete, "/params", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE = %d, want 405", rec.Code)
	}
}

// writePreset drops a preset file into dir.
func writePreset(t *testing.T, dir, name string, p Params) {
	t.Helper()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshaling preset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("writing preset: %v", err)
	}
}

func TestPresetDiscoveryPrefersDefault(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "calm", Params{FlipRatio: 0.2})
	writePreset(t, dir, "default", Params{FlipRatio: 0.9})
	writePreset(t, dir, "sloshy", Params{FlipRatio: 1.0})

	s := New(":0", Params{}, dir)

	rec := httptest.NewRecorder()
	s.handlePresets(rec, httptest.NewRequest(http.MethodGet, "/presets", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /presets = %d, want 200", rec.Code)
	}

	var list presetList
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decoding preset list: %v", err)
	}
	if list.Active != "default" {
		t.Errorf("active preset = %q, want default", list.Active)
	}
	want := []string{"calm", "default", "sloshy"}
	if len(list.Available) != len(want) {
		t.Fatalf("available = %v, want %v", list.Available, want)
	}
	for i, n := range want {
		if list.Available[i] != n {
			t.Errorf("available[%d] = %q, want %q", i, list.Available[i], n)
		}
	}
}

func TestPresetFallsBackToFirstWithoutDefault(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "zz", Params{})
	writePreset(t, dir, "aa", Params{})

	s := New(":0", Params{}, dir)
	if s.activePreset != "aa" {
		t.Errorf("active preset = %q, want first sorted name aa", s.activePreset)
	}
}

func TestPresetSwitchStagesParams(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "default", Params{FlipRatio: 0.9, NumPressureIters: 50})
	sloshy := Params{FlipRatio: 1.0, NumPressureIters: 80, CompensateDrift: true}
	writePreset(t, dir, "sloshy", sloshy)

	s := New(":0", Params{}, dir)

	body, _ := json.Marshal(map[string]string{"name": "sloshy"})
	rec := httptest.NewRecorder()
	s.handlePresets(rec, httptest.NewRequest(http.MethodPost, "/presets", bytes.NewReader(body)))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("POST /presets = %d, want 204", rec.Code)
	}

	p, changed := s.Pending()
	if !changed {
		t.Fatal("preset switch did not stage parameters")
	}
	if p != sloshy {
		t.Errorf("staged params = %+v, want %+v", p, sloshy)
	}

	// The active preset is now served by /config.
	rec = httptest.NewRecorder()
	s.handleConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /config = %d, want 200", rec.Code)
	}
	var served Params
	if err := json.NewDecoder(rec.Body).Decode(&served); err != nil {
		t.Fatalf("decoding served config: %v", err)
	}
	if served != sloshy {
		t.Errorf("served config = %+v, want %+v", served, sloshy)
	}
}

func TestPresetSwitchUnknownName(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "default", Params{})

	s := New(":0", Params{}, dir)

	body, _ := json.Marshal(map[string]string{"name": "missing"})
	rec := httptest.NewRecorder()
	s.handlePresets(rec, httptest.NewRequest(http.MethodPost, "/presets", bytes.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown preset POST = %d, want 404", rec.Code)
	}
	if _, changed := s.Pending(); changed {
		t.Error("unknown preset staged parameters")
	}
}

func TestPresetsDisabledWithoutDirectory(t *testing.T) {
	s := New(":0", Params{}, "")

	rec := httptest.NewRecorder()
	s.handlePresets(rec, httptest.NewRequest(http.MethodGet, "/presets", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /presets with no dir = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.handleConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /config with no dir = %d, want 404", rec.Code)
	}
}
