// Package device implements the management-plane session to a single
// network device: SSH transport with a NETCONF subsystem channel, plus
// the two RPCs this tool needs (EVPN route status query, routing restart).
package device

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/routewatch-net/routewatch/pkg/inventory"
	"github.com/routewatch-net/routewatch/pkg/util"
)

// hostKeyAlgorithms restricts negotiation to algorithms the managed
// devices actually serve, avoiding handshake failures on firmware that
// still offers legacy DSS keys.
var hostKeyAlgorithms = []string{
	ssh.KeyAlgoED25519,
	ssh.KeyAlgoECDSA256,
	ssh.KeyAlgoECDSA384,
	ssh.KeyAlgoECDSA521,
	ssh.KeyAlgoRSASHA512,
	ssh.KeyAlgoRSASHA256,
	ssh.KeyAlgoRSA,
}

// Session owns one device's NETCONF-over-SSH connection. Dial it,
// issue RPCs, and Close it; Close is safe on every path including a
// session that never fully connected.
type Session struct {
	device inventory.Device

	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  *bufio.Reader

	closeOnce sync.Once
	connected bool
}

// Dial connects to the device and completes the NETCONF hello exchange
// within the device's connect timeout. Any transport resource allocated
// before a failure is released before Dial returns.
func Dial(dev inventory.Device) (*Session, error) {
	config := &ssh.ClientConfig{
		User: dev.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(dev.Password),
		},
		// Managed fleet on a closed management network — production
		// deployments would verify against known_hosts.
		HostKeyCallback:   ssh.InsecureIgnoreHostKey(),
		HostKeyAlgorithms: hostKeyAlgorithms,
		Timeout:           dev.Timeout,
	}

	util.WithDevice(dev.Name).Debugf("Connecting to %s (host key verification disabled)", dev.Addr())
	client, err := ssh.Dial("tcp", dev.Addr(), config)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s@%s: %w", dev.Username, dev.Addr(), err)
	}

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("SSH session %s: %w", dev.Addr(), err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("netconf stdin %s: %w", dev.Addr(), err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("netconf stdout %s: %w", dev.Addr(), err)
	}

	if err := sess.RequestSubsystem("netconf"); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("netconf subsystem %s: %w", dev.Addr(), err)
	}

	s := &Session{
		device:  dev,
		client:  client,
		session: sess,
		stdin:   stdin,
		stdout:  bufio.NewReader(stdout),
	}

	if err := s.hello(); err != nil {
		s.Close()
		return nil, fmt.Errorf("netconf hello %s: %w", dev.Addr(), err)
	}

	s.connected = true
	util.WithDevice(dev.Name).Infof("Connected to %s", dev.Addr())
	return s, nil
}

// hello sends our capabilities and consumes the server's hello frame.
func (s *Session) hello() error {
	if err := writeFrame(s.stdin, clientHello); err != nil {
		return err
	}
	reply, err := readFrame(s.stdout)
	if err != nil {
		return err
	}
	if !isHello(reply) {
		return fmt.Errorf("unexpected greeting: %.80q", reply)
	}
	return nil
}

// RouteStatuses queries the EVPN IP-prefix database and returns the raw
// advertisement status token of every route entry, in document order.
// Returns an error, never partial results.
func (s *Session) RouteStatuses() ([]string, error) {
	if !s.connected {
		return nil, util.ErrNotConnected
	}

	reply, err := s.rpc(rpcGetEVPNPrefixDatabase)
	if err != nil {
		return nil, fmt.Errorf("EVPN status query: %w", err)
	}

	statuses, err := extractRouteStatuses(reply)
	if err != nil {
		return nil, fmt.Errorf("EVPN status reply: %w", err)
	}
	util.WithDevice(s.device.Name).Debugf("Found %d route status entries", len(statuses))
	return statuses, nil
}

// RestartRouting asks the device to restart its routing process.
func (s *Session) RestartRouting() error {
	if !s.connected {
		return util.ErrNotConnected
	}

	util.WithDevice(s.device.Name).Warnf("Restarting routing process on %s", s.device.Host)
	if _, err := s.rpc(rpcRestartRouting); err != nil {
		return fmt.Errorf("restart routing: %w", err)
	}
	util.WithDevice(s.device.Name).Infof("Routing restart initiated on %s", s.device.Host)
	return nil
}

// rpc sends one framed RPC and returns the reply body, surfacing any
// <rpc-error> the device reports.
func (s *Session) rpc(body string) ([]byte, error) {
	if err := writeFrame(s.stdin, body); err != nil {
		return nil, err
	}
	reply, err := readFrame(s.stdout)
	if err != nil {
		return nil, err
	}
	if msg, found := rpcError(reply); found {
		return nil, fmt.Errorf("rpc-error: %s", msg)
	}
	return reply, nil
}

// Close releases the session unconditionally. Safe to call more than
// once and on a session that never connected.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		wasConnected := s.connected
		s.connected = false
		if s.session != nil {
			s.session.Close()
		}
		if s.client != nil {
			err = s.client.Close()
		}
		if wasConnected {
			util.WithDevice(s.device.Name).Infof("Disconnected from %s", s.device.Host)
		}
	})
	return err
}
