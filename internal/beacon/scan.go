package beacon

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// maxScanLineSize bounds a single scan frame on the wire. A ranging
	// pass carries at most a few dozen observations; anything larger is
	// a corrupt stream.
	maxScanLineSize = 64 * 1024

	// initialScanBuffer is the starting buffer size for frame readers.
	initialScanBuffer = 4 * 1024
)

// Observation is a single beacon sighting within a scan pass.
type Observation struct {
	UUID  string `json:"uuid"`
	Major int    `json:"major"`
	Minor int    `json:"minor"`
	RSSI  int    `json:"rssi"`

	// Rank is the proximity position after region filtering and sorting
	// (0 = nearest). Assigned by the resolver, not carried on the wire.
	Rank int `json:"-"`
}

// Scan is one complete ranging pass delivered by a scanner.
type Scan struct {
	Beacons []Observation `json:"beacons"`
}

// ParseScan decodes one scan frame. An empty beacons array is valid;
// a frame that is not a JSON object returns ErrMalformedScan.
func ParseScan(line []byte) (Scan, error) {
	var scan Scan
	if err := json.Unmarshal(line, &scan); err != nil {
		return Scan{}, fmt.Errorf("%w: %w", ErrMalformedScan, err)
	}
	return scan, nil
}

// readFrames consumes newline-delimited scan frames from r until it is
// exhausted, invoking handler for each well-formed frame. Malformed
// lines are logged and dropped. Returns the underlying read error, if
// any.
func readFrames(r io.Reader, handler ScanHandler, logger Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialScanBuffer), maxScanLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		scan, err := ParseScan(line)
		if err != nil {
			logger.Warn("dropping malformed scan frame", "error", err)
			continue
		}

		handler(scan)
	}

	return scanner.Err()
}
