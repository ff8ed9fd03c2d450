// Package router drives physical backends from published command
// payloads.
//
// The router is the downstream half of the pipeline: it subscribes to
// the command topic the hub publishes on, decodes each payload, and
// fans it out to the backend that owns the hardware. Store and
// radiator payloads become one gateway helper invocation per group
// address, executed sequentially in payload order. Light payloads
// become a single HTTP call to the dimmer backend.
//
// Delivery is best effort, matching the hub's fire-and-forget publish:
// malformed payloads and backend failures are logged and dropped, and
// nothing is retried. The hub and the router share no state beyond the
// wire payload itself, so either side can restart without the other
// noticing.
package router
