package command

import (
	"fmt"
	"strconv"
	"strings"
)

// GroupAddress represents a bus group address in 3-level format.
//
// Format: Main/Middle/Sub
//   - Main:   0-31 (5 bits)
//   - Middle: 0-7 (3 bits)
//   - Sub:    0-255 (8 bits)
//
// Example: "3/4/1" is main group 3, middle group 4, sub address 1.
type GroupAddress struct {
	Main   uint8
	Middle uint8
	Sub    uint8
}

// Group address level limits.
const (
	maxMain   = 31
	maxMiddle = 7
	maxSub    = 255

	// gaLevelCount is the number of levels in a 3-level group address.
	gaLevelCount = 3
)

// ParseGroupAddress parses a 3-level group address string.
//
// Accepts the "main/middle/sub" format with each level in its valid
// range. Returns ErrInvalidGroupAddress for anything else.
//
// Example:
//
//	ga, err := ParseGroupAddress("3/4/1")
//	// ga = GroupAddress{Main: 3, Middle: 4, Sub: 1}
func ParseGroupAddress(s string) (GroupAddress, error) {
	parts := strings.Split(s, "/")
	if len(parts) != gaLevelCount {
		return GroupAddress{}, fmt.Errorf("%w: expected main/middle/sub format, got %q", ErrInvalidGroupAddress, s)
	}

	main, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || main > maxMain {
		return GroupAddress{}, fmt.Errorf("%w: main group must be 0-%d, got %q", ErrInvalidGroupAddress, maxMain, parts[0])
	}

	middle, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || middle > maxMiddle {
		return GroupAddress{}, fmt.Errorf("%w: middle group must be 0-%d, got %q", ErrInvalidGroupAddress, maxMiddle, parts[1])
	}

	sub, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil || sub > maxSub {
		return GroupAddress{}, fmt.Errorf("%w: sub address must be 0-%d, got %q", ErrInvalidGroupAddress, maxSub, parts[2])
	}

	return GroupAddress{
		Main:   uint8(main),
		Middle: uint8(middle),
		Sub:    uint8(sub),
	}, nil
}

// String returns the group address in 3-level format, e.g. "3/4/1".
func (ga GroupAddress) String() string {
	return fmt.Sprintf("%d/%d/%d", ga.Main, ga.Middle, ga.Sub)
}
