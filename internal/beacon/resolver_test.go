package beacon_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/roomcast/internal/beacon"
	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

const (
	testRegion  = "B9407F30-F5F8-466E-AFF9-25556B57FE6D"
	otherRegion = "11111111-2222-3333-4444-555555555555"
	testMajor   = 30874
)

func testBeaconConfig() config.BeaconConfig {
	return config.BeaconConfig{
		Region: config.RegionConfig{
			UUID:  testRegion,
			Major: testMajor,
		},
		Rooms: map[int]string{
			10279: "1",
			43216: "10",
		},
	}
}

func newTestResolver(t *testing.T) *beacon.Resolver {
	t.Helper()
	r, err := beacon.NewResolver(testBeaconConfig())
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

// inRegion builds an observation inside the test region.
func inRegion(minor, rssi int) beacon.Observation {
	return beacon.Observation{UUID: testRegion, Major: testMajor, Minor: minor, RSSI: rssi}
}

func scanOf(obs ...beacon.Observation) beacon.Scan {
	return beacon.Scan{Beacons: obs}
}

// =============================================================================
// Construction
// =============================================================================

func TestNewResolver_InvalidUUID(t *testing.T) {
	cfg := testBeaconConfig()
	cfg.Region.UUID = "not-a-uuid"

	if _, err := beacon.NewResolver(cfg); err == nil {
		t.Fatal("NewResolver() expected error for invalid region uuid")
	}
}

func TestResolver_NoScans(t *testing.T) {
	r := newTestResolver(t)

	if _, ok := r.Current(); ok {
		t.Error("Current() ok = true before any scan")
	}

	_, err := r.CurrentRoom()
	if !errors.Is(err, beacon.ErrNoRoom) {
		t.Errorf("CurrentRoom() error = %v, want ErrNoRoom", err)
	}
}

// =============================================================================
// Resolution
// =============================================================================

func TestResolver_Resolution(t *testing.T) {
	tests := []struct {
		name     string
		scan     beacon.Scan
		wantRoom string
		wantErr  bool
	}{
		{
			name:     "single mapped beacon",
			scan:     scanOf(inRegion(10279, -58)),
			wantRoom: "1",
		},
		{
			name:     "nearest of two mapped beacons wins",
			scan:     scanOf(inRegion(10279, -80), inRegion(43216, -55)),
			wantRoom: "10",
		},
		{
			name:     "nearest unmapped falls through to next mapped",
			scan:     scanOf(inRegion(99999, -40), inRegion(10279, -70)),
			wantRoom: "1",
		},
		{
			name:    "only unmapped beacons resolve nothing",
			scan:    scanOf(inRegion(99999, -40), inRegion(88888, -50)),
			wantErr: true,
		},
		{
			name: "foreign region filtered out",
			scan: scanOf(
				beacon.Observation{UUID: otherRegion, Major: testMajor, Minor: 10279, RSSI: -30},
			),
			wantErr: true,
		},
		{
			name: "wrong major filtered out",
			scan: scanOf(
				beacon.Observation{UUID: testRegion, Major: 1, Minor: 10279, RSSI: -30},
			),
			wantErr: true,
		},
		{
			name:    "empty scan resolves nothing",
			scan:    scanOf(),
			wantErr: true,
		},
		{
			name: "lowercase uuid still matches",
			scan: scanOf(
				beacon.Observation{UUID: "b9407f30-f5f8-466e-aff9-25556b57fe6d", Major: testMajor, Minor: 43216, RSSI: -60},
			),
			wantRoom: "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(t)
			r.OnScan(tt.scan)

			room, err := r.CurrentRoom()
			if tt.wantErr {
				if !errors.Is(err, beacon.ErrNoRoom) {
					t.Fatalf("CurrentRoom() error = %v, want ErrNoRoom", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CurrentRoom() error = %v", err)
			}
			if room != tt.wantRoom {
				t.Errorf("CurrentRoom() = %q, want %q", room, tt.wantRoom)
			}
		})
	}
}

func TestResolver_RoomPersistsAcrossDropouts(t *testing.T) {
	r := newTestResolver(t)

	r.OnScan(scanOf(inRegion(10279, -58)))

	// Empty pass, unmapped pass, foreign pass: room must stand.
	r.OnScan(scanOf())
	r.OnScan(scanOf(inRegion(99999, -40)))
	r.OnScan(scanOf(beacon.Observation{UUID: otherRegion, Major: testMajor, Minor: 43216, RSSI: -30}))

	room, err := r.CurrentRoom()
	if err != nil {
		t.Fatalf("CurrentRoom() error = %v", err)
	}
	if room != "1" {
		t.Errorf("CurrentRoom() = %q, want %q after dropouts", room, "1")
	}

	pos, ok := r.Current()
	if !ok {
		t.Fatal("Current() ok = false after resolution")
	}
	if pos.Minor != 10279 {
		t.Errorf("Position.Minor = %d, want 10279", pos.Minor)
	}
}

func TestResolver_OnChangeFiresOnlyOnChange(t *testing.T) {
	r := newTestResolver(t)

	var mu sync.Mutex
	var calls []string
	r.SetOnChange(func(room string, minor int) {
		mu.Lock()
		calls = append(calls, room)
		mu.Unlock()
	})

	r.OnScan(scanOf(inRegion(10279, -58))) // change -> "1"
	r.OnScan(scanOf(inRegion(10279, -60))) // confirm, no change
	r.OnScan(scanOf(inRegion(43216, -40))) // change -> "10"
	r.OnScan(scanOf())                     // dropout, no change

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 {
		t.Fatalf("onChange fired %d times, want 2 (calls: %v)", len(calls), calls)
	}
	if calls[0] != "1" || calls[1] != "10" {
		t.Errorf("onChange calls = %v, want [1 10]", calls)
	}
}

func TestResolver_PositionTracksConfirmation(t *testing.T) {
	r := newTestResolver(t)

	r.OnScan(scanOf(inRegion(10279, -58)))
	first, ok := r.Current()
	if !ok {
		t.Fatal("Current() ok = false after first scan")
	}

	time.Sleep(5 * time.Millisecond)

	// Same room seen through the same beacon again.
	r.OnScan(scanOf(inRegion(10279, -61)))
	second, ok := r.Current()
	if !ok {
		t.Fatal("Current() ok = false after confirmation")
	}

	if !second.Since.Equal(first.Since) {
		t.Errorf("Since changed on confirmation: %v -> %v", first.Since, second.Since)
	}
	if second.LastSeen.Before(first.LastSeen) {
		t.Errorf("LastSeen went backwards: %v -> %v", first.LastSeen, second.LastSeen)
	}

	time.Sleep(5 * time.Millisecond)

	// Room change resets Since.
	r.OnScan(scanOf(inRegion(43216, -40)))
	third, ok := r.Current()
	if !ok {
		t.Fatal("Current() ok = false after change")
	}
	if third.Room != "10" || third.Minor != 43216 {
		t.Errorf("Position = %+v, want room 10 via minor 43216", third)
	}
	if !third.Since.After(first.Since) {
		t.Errorf("Since not advanced on room change: %v -> %v", first.Since, third.Since)
	}
}

// =============================================================================
// Ranking
// =============================================================================

func TestResolver_RankOrdering(t *testing.T) {
	r := newTestResolver(t)

	var mu sync.Mutex
	var got []beacon.Observation
	r.SetOnScan(func(ranked []beacon.Observation) {
		mu.Lock()
		got = append([]beacon.Observation(nil), ranked...)
		mu.Unlock()
	})

	r.OnScan(scanOf(
		inRegion(10279, -75),
		beacon.Observation{UUID: otherRegion, Major: testMajor, Minor: 7, RSSI: -10},
		inRegion(43216, -50),
	))

	mu.Lock()
	defer mu.Unlock()

	if len(got) != 2 {
		t.Fatalf("ranked observations = %d, want 2 (foreign region dropped)", len(got))
	}
	if got[0].Minor != 43216 || got[0].Rank != 0 {
		t.Errorf("got[0] = minor %d rank %d, want minor 43216 rank 0", got[0].Minor, got[0].Rank)
	}
	if got[1].Minor != 10279 || got[1].Rank != 1 {
		t.Errorf("got[1] = minor %d rank %d, want minor 10279 rank 1", got[1].Minor, got[1].Rank)
	}
}

func TestResolver_StableOrderOnEqualRSSI(t *testing.T) {
	r := newTestResolver(t)

	var mu sync.Mutex
	var got []beacon.Observation
	r.SetOnScan(func(ranked []beacon.Observation) {
		mu.Lock()
		got = append([]beacon.Observation(nil), ranked...)
		mu.Unlock()
	})

	// Scanner without RSSI support reports zeros; wire order must hold.
	r.OnScan(scanOf(inRegion(43216, 0), inRegion(10279, 0)))

	mu.Lock()
	defer mu.Unlock()

	if len(got) != 2 {
		t.Fatalf("ranked observations = %d, want 2", len(got))
	}
	if got[0].Minor != 43216 {
		t.Errorf("got[0].Minor = %d, want 43216 (wire order on ties)", got[0].Minor)
	}

	room, err := r.CurrentRoom()
	if err != nil {
		t.Fatalf("CurrentRoom() error = %v", err)
	}
	if room != "10" {
		t.Errorf("CurrentRoom() = %q, want %q", room, "10")
	}
}

func TestResolver_OnScanNotFiredForOutOfRegionPass(t *testing.T) {
	r := newTestResolver(t)

	fired := false
	r.SetOnScan(func([]beacon.Observation) { fired = true })

	r.OnScan(scanOf(beacon.Observation{UUID: otherRegion, Major: testMajor, Minor: 10279, RSSI: -30}))
	r.OnScan(scanOf())

	if fired {
		t.Error("onScan hook fired for a pass with no in-region beacons")
	}
}
