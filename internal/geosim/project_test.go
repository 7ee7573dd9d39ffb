package geosim

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestProjectMirrorsTrust(t *testing.T) {
	w := NewWorld("g", "alpha")
	snap := Project(w, nil)

	if snap.Diplomacy == nil {
		t.Fatal("fresh projection must initialize diplomacy")
	}
	for _, n := range snap.Diplomacy.Nations {
		actor := w.ActorByID(n.ID)
		if actor == nil {
			t.Fatalf("nation %q has no matching actor", n.ID)
		}
		if n.Stance != actor.Trust {
			t.Errorf("nation %q stance %d != actor trust %d", n.ID, n.Stance, actor.Trust)
		}
	}

	// External mutation path: projection must pick up the new trust.
	first := snap.Diplomacy.Nations[0]
	w.ActorByID(first.ID).AdjustTrust(-7)

	refreshed := Project(w, snap)
	if got := refreshed.Diplomacy.Nation(first.ID).Stance; got != w.ActorByID(first.ID).Trust {
		t.Errorf("refreshed stance = %d, want %d", got, w.ActorByID(first.ID).Trust)
	}
}

func TestProjectPreservesChatHistory(t *testing.T) {
	w := NewWorld("g", "alpha")
	snap := Project(w, nil)

	id := snap.Diplomacy.Nations[0].ID
	snap.Diplomacy.Nations[0].ChatHistory = append(snap.Diplomacy.Nations[0].ChatHistory,
		ChatEntry{Role: RoleUser, Text: "hello", Timestamp: time.Now().UTC()},
	)

	refreshed := Project(w, snap)
	history := refreshed.Diplomacy.Nation(id).ChatHistory
	if len(history) != 1 || history[0].Text != "hello" {
		t.Fatalf("chat history not preserved across projection: %+v", history)
	}
}

func TestProjectLegacyDiplomacyStaysUninitialized(t *testing.T) {
	w := NewWorld("g", "alpha")
	legacy := Project(w, nil)
	legacy.Diplomacy = nil

	refreshed := Project(w, legacy)
	if refreshed.Diplomacy != nil {
		t.Fatal("projection silently initialized a legacy record's diplomacy")
	}
}

func TestProjectNationOrderStable(t *testing.T) {
	w := NewWorld("g", "alpha")

	a := Project(w, nil)
	b := Project(w, nil)
	if len(a.Diplomacy.Nations) != len(b.Diplomacy.Nations) {
		t.Fatal("nation counts differ between projections")
	}
	for i := range a.Diplomacy.Nations {
		if a.Diplomacy.Nations[i].ID != b.Diplomacy.Nations[i].ID {
			t.Fatalf("nation order unstable at %d: %q vs %q",
				i, a.Diplomacy.Nations[i].ID, b.Diplomacy.Nations[i].ID)
		}
	}
}

func TestProjectDoesNotLeakWorldFields(t *testing.T) {
	w := NewWorld("g", "alpha")
	raw, err := json.Marshal(Project(w, nil))
	if err != nil {
		t.Fatal(err)
	}

	body := string(raw)
	// Fog of war: the seed and the trailing history are world-only.
	for _, leaked := range []string{`"seed"`, `"history"`, `"actors"`} {
		if strings.Contains(body, leaked) {
			t.Errorf("snapshot leaks world field %s", leaked)
		}
	}
}

func TestProjectIdempotentWithoutMutation(t *testing.T) {
	w := NewWorld("g", "alpha")
	snap := Project(w, nil)

	a, _ := json.Marshal(Project(w, snap))
	b, _ := json.Marshal(Project(w, snap))
	if string(a) != string(b) {
		t.Fatal("projection without intervening mutation is not idempotent")
	}
}
