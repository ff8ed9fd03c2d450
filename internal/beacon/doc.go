// Package beacon resolves the occupant's current room from BLE beacon
// ranging scans.
//
// A scanner (a phone app or a helper process with a BLE adapter) emits
// scan frames, one JSON object per line. Each frame carries the beacons
// visible in one ranging pass. The resolver filters frames to the
// configured region, orders observations nearest-first by signal
// strength, and maps the nearest known beacon minor to a room label via
// the configured minor → room table.
//
// # Architecture
//
//	┌──────────────┐   NDJSON    ┌──────────────┐   room    ┌──────────────┐
//	│   Scanner    │────────────►│   Resolver   │──────────►│   Command    │
//	│ (feed/exec)  │   frames    │  (this pkg)  │   label   │   Encoder    │
//	└──────────────┘             └──────────────┘           └──────────────┘
//
// # Sources
//
// Two scan sources are provided, selected by configuration:
//
//   - FeedSource connects to a TCP feed and reads frames off the socket,
//     reconnecting with a fixed delay when the feed drops.
//   - ExecSource runs a scanner helper as a subprocess and reads frames
//     from its stdout, restarting the helper if it exits.
//
// # Room Persistence
//
// The resolved room is sticky. A frame with no in-region beacons, or
// only beacons absent from the minor → room table, leaves the previous
// room in place. Ranging is bursty and brief dropouts are normal; a
// command issued during a dropout should still target the last known
// room. Until the first successful resolution there is no room at all
// and CurrentRoom returns ErrNoRoom.
//
// # Wire Format
//
// One frame per line:
//
//	{"beacons":[{"uuid":"B9407F30-F5F8-466E-AFF9-25556B57FE6D","major":30874,"minor":10279,"rssi":-58}]}
//
// An empty beacons array is a valid frame meaning nothing in range.
// Malformed lines are logged and dropped without disturbing the stream.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package beacon
