// Package command encodes and decodes roomcast command payloads.
//
// Payloads are compact dot-delimited text, published to the command
// topic by the hub and decoded by the downstream router. The first
// segment names the action; the rest depends on it.
//
// # Grammar
//
// Light commands carry a dimmer node and a level:
//
//	Light.<node>.<percent>
//	Light.2.75
//
// Store (roller blind) and Rad (radiator) commands carry bus write
// segments, one per group address. Each segment is the address followed
// by the scaled value and the fixed write parameters:
//
//	Store.<ga> <val> 2 2.<ga+1> <val> 2 2
//	Store.3/4/1 255 2 2.3/4/2 255 2 2
//
//	Rad.<ga> <val> 2 2.<ga+1> <val> 2 2
//	Rad.0/4/1 127 2 2.0/4/2 127 2 2
//
// Group addresses use the 3-level Main/Middle/Sub format. The main
// group selects the function (blinds, heating), the middle group is
// fixed per deployment, and the sub address is the numeric room label.
// Each store/rad command targets the room's own sub address and the
// one directly above it.
//
// # Scaling
//
// Percent levels are mapped onto the 0-255 bus range with integer
// truncation: 0 -> 0, 50 -> 127, 100 -> 255. Light payloads carry the
// raw percent; the dimmer backend does its own scaling.
//
// # Errors
//
// Encoding rejects out-of-range levels, non-numeric or out-of-range
// room labels, and rooms without a configured light node. Decoding
// returns ErrMalformedPayload for anything that does not match the
// grammar; a malformed payload is never partially applied.
package command
