package geosim

import "sort"

// Project derives the player-safe snapshot from the authoritative
// world. Mirrored fields (diplomatic stance, indicators, briefing) are
// re-read from the world on every projection so that no mutation path
// can leave the snapshot stale.
//
// prev carries snapshot-only state across projections: chat histories
// live in the snapshot, not the world. When prev is nil a fresh
// diplomacy view is initialized from the world's actors. When prev
// exists but has no diplomacy sub-view (a record created before
// diplomacy existed), the absence is preserved — callers must treat it
// as "not initialized" rather than getting a silently defaulted view.
func Project(w *WorldState, prev *GameSnapshot) *GameSnapshot {
	snap := &GameSnapshot{
		GameID:         w.GameID,
		Turn:           w.Turn,
		Status:         w.Status,
		CountryProfile: w.Profile,
		Failure:        w.Failure,
		PlayerView: PlayerView{
			Indicators:     w.Indicators,
			Briefing:       w.Current.Briefing.clone(),
			IncomingEvents: append([]string{}, w.Current.IncomingEvents...),
		},
	}

	switch {
	case prev == nil:
		snap.Diplomacy = freshDiplomacy(w)
	case prev.Diplomacy == nil:
		// Legacy record: leave diplomacy uninitialized.
	default:
		snap.Diplomacy = refreshDiplomacy(w, prev.Diplomacy)
	}

	return snap
}

func freshDiplomacy(w *WorldState) *DiplomacyView {
	keys := make([]string, 0, len(w.Actors))
	for k := range w.Actors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	view := &DiplomacyView{Nations: make([]Nation, 0, len(keys))}
	for _, k := range keys {
		a := w.Actors[k]
		view.Nations = append(view.Nations, Nation{
			ID:          a.ID,
			Name:        a.Name,
			Stance:      a.Trust,
			ChatHistory: []ChatEntry{},
		})
	}
	return view
}

func refreshDiplomacy(w *WorldState, prev *DiplomacyView) *DiplomacyView {
	view := &DiplomacyView{Nations: make([]Nation, 0, len(prev.Nations))}
	for _, n := range prev.Nations {
		refreshed := Nation{
			ID:          n.ID,
			Name:        n.Name,
			Stance:      n.Stance,
			ChatHistory: append([]ChatEntry{}, n.ChatHistory...),
		}
		if a := w.ActorByID(n.ID); a != nil {
			refreshed.Stance = a.Trust
		}
		view.Nations = append(view.Nations, refreshed)
	}
	return view
}

// ActorByID finds an actor by its stable identifier, which is the join
// key between snapshot nations and world actors (not the map key).
func (w *WorldState) ActorByID(id string) *Actor {
	for _, a := range w.Actors {
		if a.ID == id {
			return a
		}
	}
	return nil
}
