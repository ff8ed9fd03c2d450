package mqtt

import "fmt"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "roomcast"

// Topics builds Roomcast MQTT topics under a configured prefix.
// Using these helpers ensures consistent topic naming across the codebase.
//
// The hierarchy is deliberately small:
//
//	{prefix}/{commands}   command payloads (the wire grammar)
//	{prefix}/status       client online/offline status (retained, LWT)
//
// Example:
//
//	topics := mqtt.NewTopics("roomcast")
//	topics.Commands("events") // "roomcast/events"
//	topics.Status()           // "roomcast/status"
type Topics struct {
	prefix string
}

// NewTopics creates a topic builder for the given prefix.
// An empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Commands returns the topic command payloads are published to.
//
// Example: roomcast/events
func (t Topics) Commands(name string) string {
	return fmt.Sprintf("%s/%s", t.prefix, name)
}

// Status returns the client status topic used for the Last Will and
// Testament and for online/offline announcements.
//
// Example: roomcast/status
func (t Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}
