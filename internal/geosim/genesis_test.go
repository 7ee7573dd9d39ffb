package geosim

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewWorldSeedDeterminism(t *testing.T) {
	a := NewWorld("game-a", "alpha")
	b := NewWorld("game-b", "alpha")

	// Strip the record names; everything else must match exactly.
	a.GameID, b.GameID = "", ""
	if !reflect.DeepEqual(a, b) {
		aj, _ := json.Marshal(a)
		bj, _ := json.Marshal(b)
		t.Fatalf("same seed produced different worlds:\n%s\n%s", aj, bj)
	}

	c := NewWorld("game-c", "beta")
	c.GameID = ""
	if reflect.DeepEqual(a, c) {
		t.Fatal("different seeds produced identical worlds")
	}
}

func TestNewWorldShape(t *testing.T) {
	w := NewWorld("g1", "alpha")

	if w.Turn != 1 {
		t.Errorf("initial turn = %d, want 1", w.Turn)
	}
	if w.Status != StatusActive {
		t.Errorf("status = %q, want %q", w.Status, StatusActive)
	}
	if len(w.Actors) != 4 {
		t.Errorf("actor count = %d, want 4", len(w.Actors))
	}
	for key, a := range w.Actors {
		if a.ID == "" || a.ID == key {
			t.Errorf("actor %q: id %q must be set and distinct from map key", key, a.ID)
		}
		if a.Trust < 0 || a.Trust > 100 {
			t.Errorf("actor %q trust %d out of bounds", key, a.Trust)
		}
	}
	if w.Current.Briefing == nil {
		t.Fatal("genesis briefing missing")
	}
	if len(w.Current.Briefing.Headlines) == 0 {
		t.Error("genesis briefing has no headlines")
	}
	if len(w.Current.IncomingEvents) == 0 {
		t.Error("genesis has no incoming events")
	}
}

func TestProjectSeedDeterminism(t *testing.T) {
	a := Project(NewWorld("g", "alpha"), nil)
	b := Project(NewWorld("g", "alpha"), nil)

	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if string(aj) != string(bj) {
		t.Fatalf("same seed produced different snapshots:\n%s\n%s", aj, bj)
	}
}
