// Package mqtt provides MQTT client connectivity for Roomcast.
//
// This package manages:
//   - Broker connections with auto-reconnect
//   - Device-token (JWT) or static credential authentication
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Roomcast uses MQTT as the uplink from the client device to the cloud
// (or lab) broker, and as the downlink the router consumes commands
// from. Construction and connection are split so the publish dispatcher
// can own the connect step:
//
//	Roomcast client → MQTT Broker → Roomcast router → gateways
//
// # Security Considerations
//
//   - TLS is required for cloud deployments (cfg.Broker.TLS=true)
//   - Device tokens are short-lived RS256 JWTs minted per connection
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.New(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Publish a command payload
//	topic := client.Topics().Commands("events")
//	client.PublishString(ctx, topic, "Light.2.50", 1, false)
package mqtt
