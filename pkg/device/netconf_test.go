package device

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

const mixedStatusReply = `<rpc-reply xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
<evpn-ip-prefix-database-information>
    <evpn-ip-prefix-database>
        <adv-ip-route-status>Accepted</adv-ip-route-status>
        <ip-prefix>192.168.1.1/32</ip-prefix>
        <rd>65001:1</rd>
    </evpn-ip-prefix-database>
    <evpn-ip-prefix-database>
        <adv-ip-route-status>Rejected</adv-ip-route-status>
        <ip-prefix>192.168.1.2/32</ip-prefix>
    </evpn-ip-prefix-database>
    <evpn-ip-prefix-database>
        <adv-ip-route-status>Pending</adv-ip-route-status>
        <ip-prefix>192.168.1.3/32</ip-prefix>
    </evpn-ip-prefix-database>
    <evpn-ip-prefix-database>
        <adv-ip-route-status>Unknown Status</adv-ip-route-status>
        <ip-prefix>192.168.1.4/32</ip-prefix>
    </evpn-ip-prefix-database>
</evpn-ip-prefix-database-information>
</rpc-reply>`

func TestExtractRouteStatuses(t *testing.T) {
	statuses, err := extractRouteStatuses([]byte(mixedStatusReply))
	if err != nil {
		t.Fatalf("extractRouteStatuses: %v", err)
	}

	want := []string{"Accepted", "Rejected", "Pending", "Unknown Status"}
	if len(statuses) != len(want) {
		t.Fatalf("got %d statuses %v, want %d", len(statuses), statuses, len(want))
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("statuses[%d] = %q, want %q (document order)", i, statuses[i], want[i])
		}
	}
}

func TestExtractRouteStatuses_EmptyDatabase(t *testing.T) {
	reply := `<rpc-reply><evpn-ip-prefix-database-information>
</evpn-ip-prefix-database-information></rpc-reply>`

	statuses, err := extractRouteStatuses([]byte(reply))
	if err != nil {
		t.Fatalf("extractRouteStatuses: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %v, want none", statuses)
	}
}

func TestExtractRouteStatuses_Malformed(t *testing.T) {
	if _, err := extractRouteStatuses([]byte("<rpc-reply><unclosed")); err == nil {
		t.Error("expected error for malformed reply")
	}
}

func TestRPCError(t *testing.T) {
	reply := `<rpc-reply>
  <rpc-error>
    <error-severity>error</error-severity>
    <error-message>
      daemon not responding
    </error-message>
  </rpc-error>
</rpc-reply>`

	msg, found := rpcError([]byte(reply))
	if !found {
		t.Fatal("rpc-error not detected")
	}
	if msg != "daemon not responding" {
		t.Errorf("message = %q", msg)
	}

	if _, found := rpcError([]byte(`<rpc-reply><ok/></rpc-reply>`)); found {
		t.Error("false positive on clean reply")
	}
}

func TestRPCError_NoMessage(t *testing.T) {
	msg, found := rpcError([]byte(`<rpc-reply><rpc-error/></rpc-reply>`))
	if !found {
		t.Fatal("rpc-error not detected")
	}
	if msg == "" {
		t.Error("expected a placeholder message")
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var wire bytes.Buffer
	if err := writeFrame(&wire, clientHello); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	if err := writeFrame(&wire, rpcGetEVPNPrefixDatabase); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	r := bufio.NewReader(&wire)

	first, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if !isHello(first) {
		t.Errorf("first frame not recognized as hello: %q", first)
	}

	second, err := readFrame(r)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if string(second) != rpcGetEVPNPrefixDatabase {
		t.Errorf("second frame = %q", second)
	}
}

func TestReadFrame_TruncatedStream(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("<rpc-reply>no delimiter"))
	if _, err := readFrame(r); err == nil {
		t.Error("expected error for stream without delimiter")
	}
}

func TestRouteStatuses_NotConnected(t *testing.T) {
	s := &Session{}
	if _, err := s.RouteStatuses(); err == nil {
		t.Error("expected error on unconnected session")
	}
	if err := s.RestartRouting(); err == nil {
		t.Error("expected error on unconnected session")
	}
}

// Close is safe on a session that never connected, and on repeat calls.
func TestClose_Idempotent(t *testing.T) {
	s := &Session{}
	if err := s.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
