// Package evpn classifies EVPN IP-prefix route advertisements by their
// acceptance status as reported by a device's control plane.
package evpn

import (
	"fmt"
	"strings"

	"github.com/routewatch-net/routewatch/pkg/util"
)

// Route acceptance statuses reported in the EVPN IP-prefix database.
// Anything else a device reports is folded into StatusUnknown.
const (
	StatusAccepted = "Accepted"
	StatusRejected = "Rejected"
	StatusPending  = "Pending"
	StatusInvalid  = "Invalid"
	StatusUnknown  = "Unknown"
)

// StatusCounts holds per-status route counts for one device at one point
// in time. The zero value (all zero) is the result for a device that could
// not be queried.
type StatusCounts struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
	Invalid  int `json:"invalid"`
	Unknown  int `json:"unknown"`
}

// Classify folds a sequence of raw status tokens into counts.
// Tokens are trimmed; an empty token counts as Unknown. Unrecognized
// tokens also count as Unknown and are logged, since they indicate a
// status value this tool does not know about.
func Classify(device string, tokens []string) StatusCounts {
	var counts StatusCounts
	for _, token := range tokens {
		status := strings.TrimSpace(token)
		if status == "" {
			status = StatusUnknown
		}
		switch status {
		case StatusAccepted:
			counts.Accepted++
		case StatusRejected:
			counts.Rejected++
		case StatusPending:
			counts.Pending++
		case StatusInvalid:
			counts.Invalid++
		case StatusUnknown:
			counts.Unknown++
		default:
			counts.Unknown++
			util.WithDevice(device).Warnf("unknown route status: %q", status)
		}
	}
	return counts
}

// Total returns the number of routes across all statuses.
func (c StatusCounts) Total() int {
	return c.Accepted + c.Rejected + c.Pending + c.Invalid + c.Unknown
}

// Add returns the element-wise sum of c and other.
func (c StatusCounts) Add(other StatusCounts) StatusCounts {
	return StatusCounts{
		Accepted: c.Accepted + other.Accepted,
		Rejected: c.Rejected + other.Rejected,
		Pending:  c.Pending + other.Pending,
		Invalid:  c.Invalid + other.Invalid,
		Unknown:  c.Unknown + other.Unknown,
	}
}

// Summary returns a comma-joined list of the nonzero counts in a fixed
// order, e.g. "Accepted: 10, Rejected: 2". Returns "" when all counts
// are zero.
func (c StatusCounts) Summary() string {
	var parts []string
	for _, s := range []struct {
		name  string
		count int
	}{
		{StatusAccepted, c.Accepted},
		{StatusRejected, c.Rejected},
		{StatusPending, c.Pending},
		{StatusInvalid, c.Invalid},
		{StatusUnknown, c.Unknown},
	} {
		if s.count > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", s.name, s.count))
		}
	}
	return strings.Join(parts, ", ")
}
