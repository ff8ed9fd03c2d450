// Package influxdb provides the time-series telemetry sink for roomcast.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes, and health monitoring.
//
// # Purpose
//
// This package records operational telemetry:
//   - Beacon sightings (minor + proximity rank per scan)
//   - Room resolutions (when the nearest mapped beacon changes)
//   - Dispatch outcomes (sent/failed with publish latency)
//
// Telemetry is strictly optional: when disabled in config, Connect
// returns ErrDisabled and the hub runs without a sink. The durable
// record of dispatch outcomes lives in the command journal; InfluxDB
// exists for dashboards and trend queries.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off, continue without it
//	}
//	defer client.Close()
//
//	client.WriteBeaconSighting(10279, 0)
//	client.WriteRoomResolution("1", 10279)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered via
// the SetOnError callback. Connection and health check errors are
// returned directly.
package influxdb
