// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package anticheat

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTracker_MovementWindowBounded(t *testing.T) {
	tr := NewTracker(0, 0, 4)

	for i := 0; i < DefaultMovementWindow+1; i++ {
		tr.AppendMovement("acc-1", MovementSample{
			Position:  Vec3{X: float64(i)},
			Timestamp: testEpoch.Add(time.Duration(i) * time.Second),
		}, 3)
	}

	got := tr.MovementSnapshot("acc-1")
	if len(got) != DefaultMovementWindow {
		t.Fatalf("window length = %d, want %d", len(got), DefaultMovementWindow)
	}
	if got[0].Position.X != 1 {
		t.Errorf("oldest sample X = %v, want 1 (sample 0 evicted)", got[0].Position.X)
	}
	if got[len(got)-1].Position.X != float64(DefaultMovementWindow) {
		t.Errorf("newest sample X = %v", got[len(got)-1].Position.X)
	}
}

func TestTracker_AppendMovementReturnsNewest(t *testing.T) {
	tr := NewTracker(10, 10, 1)

	var last []MovementSample
	for i := 0; i < 5; i++ {
		last = tr.AppendMovement("acc-1", MovementSample{Position: Vec3{X: float64(i)}}, 3)
	}
	if len(last) != 3 || last[0].Position.X != 2 || last[2].Position.X != 4 {
		t.Errorf("AppendMovement returned %+v", last)
	}
}

func TestTracker_MarkSeen(t *testing.T) {
	tr := NewTracker(2, 2, 1)

	if !tr.MarkSeen("acc-1", "evt-1") {
		t.Error("first delivery reported as seen")
	}
	if tr.MarkSeen("acc-1", "evt-1") {
		t.Error("redelivery reported as new")
	}
	if !tr.MarkSeen("acc-2", "evt-1") {
		t.Error("ids are per account")
	}

	// Capacity is movement plus kill window, so evt-1 is evicted after four more.
	for i := 0; i < 4; i++ {
		tr.MarkSeen("acc-1", fmt.Sprintf("evt-%d", i+2))
	}
	if !tr.MarkSeen("acc-1", "evt-1") {
		t.Error("evicted id still reported as seen")
	}

	tr.Clear("acc-1")
	if !tr.MarkSeen("acc-1", "evt-5") {
		t.Error("Clear did not forget seen ids")
	}
}

func TestTracker_KillWindowAndStats(t *testing.T) {
	tr := NewTracker(0, 0, 4)

	var w KillWindow
	for i := 0; i < DefaultKillWindow+10; i++ {
		w = tr.AppendKill("acc-1", KillRecord{
			Distance:  float64(i),
			Headshot:  i%2 == 0,
			Timestamp: testEpoch.Add(time.Duration(i) * time.Second),
		})
		if w.Stats.TotalKills != i+1 {
			t.Fatalf("TotalKills = %d after %d kills", w.Stats.TotalKills, i+1)
		}
	}

	if len(w.Kills) != DefaultKillWindow {
		t.Errorf("kill window length = %d, want %d", len(w.Kills), DefaultKillWindow)
	}
	if w.Current.Distance != float64(DefaultKillWindow+9) {
		t.Errorf("Current = %+v", w.Current)
	}
	// Counters are lifetime, not window, values.
	if w.Stats.TotalKills != DefaultKillWindow+10 || w.Stats.HeadshotCount != (DefaultKillWindow+10)/2 {
		t.Errorf("Stats = %+v", w.Stats)
	}
}

func TestTracker_SuspiciousAndResets(t *testing.T) {
	tr := NewTracker(10, 10, 2)

	tr.AppendMovement("acc-1", MovementSample{}, 1)
	tr.AppendKill("acc-1", KillRecord{Headshot: true})
	tr.AddSuspicious("acc-1", 2)
	tr.AddSuspicious("acc-1", 0)

	stats, ok := tr.Stats("acc-1")
	if !ok || stats.SuspiciousKills != 2 || stats.TotalKills != 1 {
		t.Fatalf("Stats = %+v, %v", stats, ok)
	}

	tr.ClearMovement("acc-1")
	if n := len(tr.MovementSnapshot("acc-1")); n != 0 {
		t.Errorf("movement after ClearMovement = %d", n)
	}
	if n := len(tr.KillSnapshot("acc-1")); n != 1 {
		t.Errorf("kills after ClearMovement = %d, want 1", n)
	}

	tr.ResetKills("acc-1")
	stats, ok = tr.Stats("acc-1")
	if !ok || stats != (KillStats{}) {
		t.Errorf("Stats after ResetKills = %+v, %v", stats, ok)
	}

	tr.Clear("acc-1")
	if _, ok := tr.Stats("acc-1"); ok {
		t.Error("account still tracked after Clear")
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}

	// Resets on unknown accounts do not create entries.
	tr.ClearMovement("ghost")
	tr.ResetKills("ghost")
	if tr.Len() != 0 {
		t.Error("reset created an entry")
	}
}

func TestTracker_ConcurrentAppends(t *testing.T) {
	tr := NewTracker(1000, 1000, 8)

	const (
		accounts = 8
		perGo    = 200
	)
	var wg sync.WaitGroup
	for a := 0; a < accounts; a++ {
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				for i := 0; i < perGo; i++ {
					tr.AppendKill(id, KillRecord{Headshot: true})
					tr.AppendMovement(id, MovementSample{}, 3)
				}
			}(fmt.Sprintf("acc-%d", a))
		}
	}
	wg.Wait()

	for a := 0; a < accounts; a++ {
		id := fmt.Sprintf("acc-%d", a)
		stats, _ := tr.Stats(id)
		if stats.TotalKills != 2*perGo || stats.HeadshotCount != 2*perGo {
			t.Errorf("%s: Stats = %+v, want %d kills", id, stats, 2*perGo)
		}
		if n := len(tr.MovementSnapshot(id)); n != 2*perGo {
			t.Errorf("%s: movement = %d", id, n)
		}
	}
}
