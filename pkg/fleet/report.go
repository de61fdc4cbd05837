package fleet

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/routewatch-net/routewatch/pkg/evpn"
)

// Report is the pure reduction of a finished result set. Aggregating the
// same results twice yields an identical report.
type Report struct {
	// Devices holds every result, sorted by display name.
	Devices []Result

	// Totals sums route counts across all connected devices.
	Totals evpn.StatusCounts

	// Rejected lists devices with at least one rejected route.
	Rejected []Result

	// Failed lists devices that could not be connected.
	Failed []Result

	// Fix records whether the run had remediation enabled; it selects
	// the restart breakdown in the rendered output.
	Fix bool
}

// Aggregate reduces a result set into a report. The input is not
// mutated; results arrive in arbitrary completion order and are sorted
// here so rendering is deterministic.
func Aggregate(results []Result, fix bool) *Report {
	report := &Report{
		Devices: make([]Result, len(results)),
		Fix:     fix,
	}
	copy(report.Devices, results)
	sort.Slice(report.Devices, func(i, j int) bool {
		if report.Devices[i].Name != report.Devices[j].Name {
			return report.Devices[i].Name < report.Devices[j].Name
		}
		return report.Devices[i].Host < report.Devices[j].Host
	})

	for _, r := range report.Devices {
		if !r.Connected {
			report.Failed = append(report.Failed, r)
			continue
		}
		report.Totals = report.Totals.Add(r.Counts)
		if r.Counts.Rejected > 0 {
			report.Rejected = append(report.Rejected, r)
		}
	}
	return report
}

// Render writes the human-readable fleet report: one line per device,
// then the fleet-wide summary.
func (r *Report) Render(w io.Writer) {
	divider := strings.Repeat("=", 60)

	fmt.Fprintf(w, "\nEVPN Route Status Summary:\n%s\n", divider)

	for _, dev := range r.Devices {
		fmt.Fprintf(w, "%-30s - %s\n", dev.Display(), r.deviceLine(dev))
	}

	fmt.Fprintf(w, "\n%s\nOverall Summary:\n", divider)
	fmt.Fprintf(w, "Total routes: %s\n", orPlaceholder(r.Totals.Summary(), "none"))

	if len(r.Failed) > 0 {
		fmt.Fprintf(w, "\nConnection failures: %d\n", len(r.Failed))
		for _, dev := range r.Failed {
			fmt.Fprintf(w, "  - %s\n", dev.Display())
		}
	}

	if len(r.Rejected) == 0 {
		return
	}

	fmt.Fprintf(w, "\nDevices with rejected routes: %d\n", len(r.Rejected))
	if r.Fix {
		r.renderFixBreakdown(w)
		return
	}
	for _, dev := range r.Rejected {
		fmt.Fprintf(w, "  - %s: %d rejected routes\n", dev.Display(), dev.Counts.Rejected)
	}
	fmt.Fprintf(w, "\nTo fix rejected routes, run with --fix\n")
}

// deviceLine formats the status portion of one device's report line.
func (r *Report) deviceLine(dev Result) string {
	if !dev.Connected {
		return "CONNECTION FAILED"
	}

	line := orPlaceholder(dev.Counts.Summary(), "No routes found")
	if r.Fix {
		switch {
		case dev.RestartAttempted && dev.RestartSucceeded:
			line += " [Restart: SUCCESS]"
		case dev.RestartAttempted:
			line += " [Restart: FAILED]"
		default:
			line += " [Restart: NO]"
		}
	}
	return line
}

// renderFixBreakdown partitions the rejected devices by restart outcome.
// A rejected device without a restart attempt should not occur given the
// workflow gate, but is still representable and reported.
func (r *Report) renderFixBreakdown(w io.Writer) {
	var succeeded, failed, skipped []Result
	for _, dev := range r.Rejected {
		switch {
		case dev.RestartAttempted && dev.RestartSucceeded:
			succeeded = append(succeeded, dev)
		case dev.RestartAttempted:
			failed = append(failed, dev)
		default:
			skipped = append(skipped, dev)
		}
	}

	for _, dev := range skipped {
		fmt.Fprintf(w, "  - %s: %d rejected routes (no fix attempted)\n",
			dev.Display(), dev.Counts.Rejected)
	}
	if len(succeeded) > 0 {
		fmt.Fprintf(w, "\nSuccessfully restarted routing on %d device(s):\n", len(succeeded))
		for _, dev := range succeeded {
			fmt.Fprintf(w, "  - %s: fixed %d rejected routes\n", dev.Display(), dev.Counts.Rejected)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed to restart routing on %d device(s):\n", len(failed))
		for _, dev := range failed {
			fmt.Fprintf(w, "  - %s: %d rejected routes (fix failed)\n", dev.Display(), dev.Counts.Rejected)
		}
	}
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
