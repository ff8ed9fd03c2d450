package beacon

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Position describes the currently resolved room.
type Position struct {
	// Room is the room label from the minor → room table.
	Room string `json:"room"`

	// Minor is the beacon that produced the resolution.
	Minor int `json:"minor"`

	// Since is when the room last changed.
	Since time.Time `json:"since"`

	// LastSeen is when a scan last confirmed the room.
	LastSeen time.Time `json:"last_seen"`
}

// Resolver turns beacon scans into a current room.
//
// Each scan pass is filtered to the configured region, ordered
// nearest-first by signal strength, and the nearest observation with a
// mapped minor becomes the current room. Passes with no mapped beacon
// leave the previous room in place.
//
// All methods are safe for concurrent use.
type Resolver struct {
	region uuid.UUID
	major  int
	rooms  map[int]string

	logger Logger

	mu       sync.RWMutex
	current  *Position
	onScan   func([]Observation)
	onChange func(room string, minor int)
}

// NewResolver builds a resolver from the beacon configuration.
func NewResolver(cfg config.BeaconConfig) (*Resolver, error) {
	region, err := uuid.Parse(cfg.Region.UUID)
	if err != nil {
		return nil, fmt.Errorf("beacon: invalid region uuid %q: %w", cfg.Region.UUID, err)
	}

	rooms := make(map[int]string, len(cfg.Rooms))
	for minor, room := range cfg.Rooms {
		rooms[minor] = room
	}

	return &Resolver{
		region: region,
		major:  cfg.Region.Major,
		rooms:  rooms,
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetOnScan registers a hook invoked with the region-filtered,
// proximity-ranked observations of every scan pass that contains at
// least one in-region beacon. Used for telemetry.
func (r *Resolver) SetOnScan(fn func(ranked []Observation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onScan = fn
}

// SetOnChange registers a hook invoked whenever the resolved room
// changes. It is not invoked for passes that confirm the current room.
func (r *Resolver) SetOnChange(fn func(room string, minor int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// OnScan processes one ranging pass. Implements ScanHandler.
func (r *Resolver) OnScan(scan Scan) {
	ranked := r.rank(scan)
	if len(ranked) == 0 {
		// Nothing in-region this pass; the previous room stands.
		return
	}

	r.mu.RLock()
	onScan := r.onScan
	r.mu.RUnlock()
	if onScan != nil {
		onScan(ranked)
	}

	room, minor, ok := r.nearestMapped(ranked)
	if !ok {
		r.logger.Debug("scan has no mapped beacon", "observations", len(ranked))
		return
	}

	now := time.Now()

	r.mu.Lock()
	changed := r.current == nil || r.current.Room != room
	if changed {
		r.current = &Position{Room: room, Minor: minor, Since: now, LastSeen: now}
	} else {
		r.current.Minor = minor
		r.current.LastSeen = now
	}
	onChange := r.onChange
	r.mu.Unlock()

	if changed {
		r.logger.Info("room resolved", "room", room, "minor", minor)
		if onChange != nil {
			onChange(room, minor)
		}
	}
}

// rank filters a scan to the configured region and orders it
// nearest-first by signal strength. The sort is stable, so scanners
// that already emit nearest-first keep their ordering on RSSI ties
// (including the all-zero case when a scanner reports no RSSI).
func (r *Resolver) rank(scan Scan) []Observation {
	ranked := make([]Observation, 0, len(scan.Beacons))
	for _, obs := range scan.Beacons {
		id, err := uuid.Parse(obs.UUID)
		if err != nil || id != r.region {
			continue
		}
		if obs.Major != r.major {
			continue
		}
		ranked = append(ranked, obs)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RSSI > ranked[j].RSSI
	})
	for i := range ranked {
		ranked[i].Rank = i
	}

	return ranked
}

// nearestMapped returns the room of the nearest observation whose minor
// appears in the minor → room table.
func (r *Resolver) nearestMapped(ranked []Observation) (room string, minor int, ok bool) {
	for _, obs := range ranked {
		if label, found := r.rooms[obs.Minor]; found {
			return label, obs.Minor, true
		}
	}
	return "", 0, false
}

// Current returns the most recently resolved position.
// ok is false until the first successful resolution.
func (r *Resolver) Current() (Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return Position{}, false
	}
	return *r.current, true
}

// CurrentRoom returns the resolved room label, or ErrNoRoom if no scan
// has produced a mapped beacon yet.
func (r *Resolver) CurrentRoom() (string, error) {
	pos, ok := r.Current()
	if !ok {
		return "", ErrNoRoom
	}
	return pos.Room, nil
}
