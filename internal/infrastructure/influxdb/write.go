package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteBeaconSighting records a single ranged beacon observation.
//
// Called once per observation on every scan pass, so this is the
// highest-frequency measurement; the write is non-blocking and batched.
//
// Parameters:
//   - minor: Beacon minor value identifying the physical beacon
//   - rank: Proximity rank within the scan (0 = nearest)
//
// Example:
//
//	client.WriteBeaconSighting(10279, 0)
func (c *Client) WriteBeaconSighting(minor int, rank int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"beacon_sightings",
		map[string]string{
			"minor": strconv.Itoa(minor),
		},
		map[string]interface{}{
			"rank": rank,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRoomResolution records a change of the resolved room.
//
// Written only when the nearest mapped beacon changes, not on every
// scan, so cardinality stays proportional to actual movement.
//
// Parameters:
//   - room: The newly resolved room label
//   - minor: The beacon minor that produced the resolution
func (c *Client) WriteRoomResolution(room string, minor int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"room_resolutions",
		map[string]string{
			"room": room,
		},
		map[string]interface{}{
			"minor": minor,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDispatchOutcome records the terminal state of a dispatched command.
//
// Tags carry the low-cardinality dimensions (action, status) for
// aggregation; the job ID and publish latency land as fields.
//
// Parameters:
//   - jobID: Unique dispatch job identifier
//   - action: Command action name (e.g., "light", "store", "rad")
//   - status: Terminal status, "sent" or "failed"
//   - latency: Wall time from dequeue to broker acknowledgement
func (c *Client) WriteDispatchOutcome(jobID string, action string, status string, latency time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"dispatch_outcomes",
		map[string]string{
			"action": action,
			"status": status,
		},
		map[string]interface{}{
			"job_id":     jobID,
			"latency_ms": latency.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
