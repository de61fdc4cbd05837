package fleet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/routewatch-net/routewatch/pkg/evpn"
)

func sampleResults() []Result {
	return []Result{
		{Host: "leaf2.example.net", Name: "leaf2", Connected: true,
			Counts: evpn.StatusCounts{Accepted: 5, Rejected: 2}},
		{Host: "leaf1.example.net", Name: "leaf1", Connected: true,
			Counts: evpn.StatusCounts{Accepted: 10}},
		{Host: "spine1.example.net", Name: "spine1", Connected: false},
	}
}

func TestAggregate_Totals(t *testing.T) {
	report := Aggregate(sampleResults(), false)

	expected := evpn.StatusCounts{Accepted: 15, Rejected: 2}
	if report.Totals != expected {
		t.Errorf("Totals = %+v, want %+v", report.Totals, expected)
	}
	if len(report.Rejected) != 1 || report.Rejected[0].Name != "leaf2" {
		t.Errorf("Rejected = %+v, want only leaf2", report.Rejected)
	}
	if len(report.Failed) != 1 || report.Failed[0].Name != "spine1" {
		t.Errorf("Failed = %+v, want only spine1", report.Failed)
	}
}

func TestAggregate_SortsByDisplayName(t *testing.T) {
	report := Aggregate(sampleResults(), false)

	var names []string
	for _, dev := range report.Devices {
		names = append(names, dev.Name)
	}
	want := []string{"leaf1", "leaf2", "spine1"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("device order = %v, want %v", names, want)
		}
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	results := sampleResults()
	first := results[0]
	Aggregate(results, true)
	if results[0] != first {
		t.Error("Aggregate reordered or mutated the input slice")
	}
}

// The reduction is pure: same results in, byte-identical report out.
func TestReport_Deterministic(t *testing.T) {
	results := sampleResults()

	var a, b bytes.Buffer
	Aggregate(results, true).Render(&a)
	Aggregate(results, true).Render(&b)

	if a.String() != b.String() {
		t.Errorf("renders differ:\n%s\n---\n%s", a.String(), b.String())
	}

	// Shuffled collection order must not change the report.
	shuffled := []Result{results[2], results[0], results[1]}
	var c bytes.Buffer
	Aggregate(shuffled, true).Render(&c)
	if a.String() != c.String() {
		t.Errorf("render depends on collection order:\n%s\n---\n%s", a.String(), c.String())
	}
}

func TestRender_DeviceLines(t *testing.T) {
	results := []Result{
		{Host: "h1", Name: "ok", Connected: true, Counts: evpn.StatusCounts{Accepted: 3}},
		{Host: "h2", Name: "quiet", Connected: true},
		{Host: "h3", Name: "down"},
	}

	var buf bytes.Buffer
	Aggregate(results, false).Render(&buf)
	out := buf.String()

	if !strings.Contains(out, "ok:h1") || !strings.Contains(out, "Accepted: 3") {
		t.Errorf("missing per-device counts line:\n%s", out)
	}
	if !strings.Contains(out, "No routes found") {
		t.Errorf("missing empty-database placeholder:\n%s", out)
	}
	if !strings.Contains(out, "CONNECTION FAILED") {
		t.Errorf("missing connection failure line:\n%s", out)
	}
	if !strings.Contains(out, "Connection failures: 1") {
		t.Errorf("missing failure summary:\n%s", out)
	}
	// Connected devices get exactly one line; failed devices appear a
	// second time in the failure list.
	for _, display := range []string{"ok:h1", "quiet:h2"} {
		if strings.Count(out, display) != 1 {
			t.Errorf("device %s should appear exactly once:\n%s", display, out)
		}
	}
	if strings.Count(out, "down:h3") != 2 {
		t.Errorf("failed device should appear in both device and failure lists:\n%s", out)
	}
}

func TestRender_RejectedHintWithoutFix(t *testing.T) {
	results := []Result{
		{Host: "h1", Name: "bad", Connected: true, Counts: evpn.StatusCounts{Rejected: 4}},
	}

	var buf bytes.Buffer
	Aggregate(results, false).Render(&buf)
	out := buf.String()

	if !strings.Contains(out, "Devices with rejected routes: 1") {
		t.Errorf("missing rejected summary:\n%s", out)
	}
	if !strings.Contains(out, "bad:h1: 4 rejected routes") {
		t.Errorf("missing rejected device line:\n%s", out)
	}
	if !strings.Contains(out, "run with --fix") {
		t.Errorf("missing rerun hint:\n%s", out)
	}
	if strings.Contains(out, "[Restart") {
		t.Errorf("restart markers present outside fix mode:\n%s", out)
	}
}

func TestRender_FixBreakdown(t *testing.T) {
	results := []Result{
		{Host: "h1", Name: "fixed", Connected: true,
			Counts:           evpn.StatusCounts{Rejected: 2},
			RestartAttempted: true, RestartSucceeded: true},
		{Host: "h2", Name: "stuck", Connected: true,
			Counts:           evpn.StatusCounts{Rejected: 1},
			RestartAttempted: true},
		{Host: "h3", Name: "missed", Connected: true,
			Counts: evpn.StatusCounts{Rejected: 3}},
	}

	var buf bytes.Buffer
	Aggregate(results, true).Render(&buf)
	out := buf.String()

	if !strings.Contains(out, "[Restart: SUCCESS]") {
		t.Errorf("missing success marker:\n%s", out)
	}
	if !strings.Contains(out, "[Restart: FAILED]") {
		t.Errorf("missing failure marker:\n%s", out)
	}
	if !strings.Contains(out, "[Restart: NO]") {
		t.Errorf("missing not-attempted marker:\n%s", out)
	}
	if !strings.Contains(out, "Successfully restarted routing on 1 device(s):") {
		t.Errorf("missing success breakdown:\n%s", out)
	}
	if !strings.Contains(out, "fixed:h1: fixed 2 rejected routes") {
		t.Errorf("missing success detail:\n%s", out)
	}
	if !strings.Contains(out, "Failed to restart routing on 1 device(s):") {
		t.Errorf("missing failure breakdown:\n%s", out)
	}
	if !strings.Contains(out, "stuck:h2: 1 rejected routes (fix failed)") {
		t.Errorf("missing failure detail:\n%s", out)
	}
	if !strings.Contains(out, "missed:h3: 3 rejected routes (no fix attempted)") {
		t.Errorf("missing not-attempted detail:\n%s", out)
	}
	if strings.Contains(out, "run with --fix") {
		t.Errorf("rerun hint present in fix mode:\n%s", out)
	}
}

func TestRender_EmptyResultSet(t *testing.T) {
	var buf bytes.Buffer
	Aggregate(nil, false).Render(&buf)
	out := buf.String()

	if !strings.Contains(out, "Total routes: none") {
		t.Errorf("missing empty totals placeholder:\n%s", out)
	}
	if strings.Contains(out, "rejected") {
		t.Errorf("unexpected rejected section:\n%s", out)
	}
}
