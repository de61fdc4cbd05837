package device

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// NETCONF 1.0 end-of-message delimiter.
const messageSeparator = "]]>]]>"

const clientHello = `<?xml version="1.0" encoding="UTF-8"?>
<hello xmlns="urn:ietf:params:xml:ns:netconf:base:1.0">
  <capabilities>
    <capability>urn:ietf:params:netconf:base:1.0</capability>
  </capabilities>
</hello>`

const rpcGetEVPNPrefixDatabase = `<rpc><get-evpn-ip-prefix-database-information/></rpc>`

const rpcRestartRouting = `<rpc><restart-routing-process/></rpc>`

// writeFrame sends one message followed by the end-of-message delimiter.
func writeFrame(w io.Writer, body string) error {
	if _, err := io.WriteString(w, body+"\n"+messageSeparator+"\n"); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// readFrame reads one message up to the end-of-message delimiter.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	delim := []byte(messageSeparator)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("read frame: %w", err)
		}
		buf.WriteByte(b)
		if b == '>' && bytes.HasSuffix(buf.Bytes(), delim) {
			frame := buf.Bytes()
			return bytes.TrimSpace(frame[:len(frame)-len(delim)]), nil
		}
	}
}

// isHello reports whether the frame is a NETCONF hello message.
func isHello(frame []byte) bool {
	return bytes.Contains(frame, []byte("<hello"))
}

// rpcError extracts the first <rpc-error> message from a reply, if any.
func rpcError(reply []byte) (string, bool) {
	if !bytes.Contains(reply, []byte("<rpc-error")) {
		return "", false
	}

	dec := xml.NewDecoder(bytes.NewReader(reply))
	var inError, inMessage bool
	var message string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rpc-error":
				inError = true
			case "error-message":
				inMessage = inError
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "rpc-error":
				inError = false
			case "error-message":
				inMessage = false
			}
		case xml.CharData:
			if inMessage && message == "" {
				message = strings.TrimSpace(string(t))
			}
		}
	}
	if message == "" {
		message = "device reported an error"
	}
	return message, true
}

// extractRouteStatuses walks the RPC reply and collects the text of every
// adv-ip-route-status element, in document order. The reply structure
// around them is not interpreted further.
func extractRouteStatuses(reply []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(reply))
	var statuses []string
	var inStatus bool
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing reply: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "adv-ip-route-status" {
				inStatus = true
				text.Reset()
			}
		case xml.CharData:
			if inStatus {
				text.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "adv-ip-route-status" {
				inStatus = false
				statuses = append(statuses, text.String())
			}
		}
	}
	return statuses, nil
}
