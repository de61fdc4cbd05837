// Package fleet dispatches EVPN route audits across a device fleet under
// a bounded concurrency ceiling and aggregates the per-device outcomes.
//
// Devices are independent: a connection failure, query failure, or even a
// panic while processing one device never affects the others or aborts
// the batch. Every device yields exactly one Result.
package fleet

import (
	"sync"
	"time"

	"github.com/routewatch-net/routewatch/pkg/evpn"
	"github.com/routewatch-net/routewatch/pkg/inventory"
	"github.com/routewatch-net/routewatch/pkg/util"
)

// DefaultConcurrency is the device-level parallelism used when the
// configuration does not set one.
const DefaultConcurrency = 10

// Session is the device capability the workflow consumes. Implemented by
// device.Session; tests substitute fakes.
type Session interface {
	// RouteStatuses returns the raw status token of every advertised
	// route in the EVPN IP-prefix database, in device order.
	RouteStatuses() ([]string, error)

	// RestartRouting restarts the device's routing process.
	RestartRouting() error

	// Close releases the session. Idempotent.
	Close() error
}

// Dialer opens a session to one device.
type Dialer interface {
	Dial(dev inventory.Device) (Session, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(dev inventory.Device) (Session, error)

// Dial calls f.
func (f DialFunc) Dial(dev inventory.Device) (Session, error) { return f(dev) }

// Result is the outcome of processing one device. Immutable once
// returned by the coordinator.
type Result struct {
	Host      string
	Name      string
	Connected bool
	Counts    evpn.StatusCounts

	// RestartAttempted is set only when fix mode gated a restart; it
	// implies Connected and a successful status query.
	RestartAttempted bool
	RestartSucceeded bool
}

// Display returns the "name:host" form used in reports.
func (r Result) Display() string {
	return r.Name + ":" + r.Host
}

// Config controls one fleet run. The zero value means: default
// concurrency, per-device connect timeouts, no remediation.
type Config struct {
	// Concurrency caps how many devices are in flight at once.
	Concurrency int

	// ConnectTimeout overrides every device's connect timeout when set.
	ConnectTimeout time.Duration

	// Fix enables the remediation side effect: routing restart on
	// devices with rejected routes.
	Fix bool
}

// Coordinator fans device workflows out across the fleet.
type Coordinator struct {
	config Config
	dialer Dialer
}

// NewCoordinator creates a coordinator for one run.
func NewCoordinator(config Config, dialer Dialer) *Coordinator {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	return &Coordinator{config: config, dialer: dialer}
}

// Run processes all devices and returns one Result per device.
// Collection order is unspecified; results carry their originating host.
// An empty device list is a no-op, not an error.
func (c *Coordinator) Run(devices []inventory.Device) []Result {
	if len(devices) == 0 {
		util.Warn("No devices to process")
		return nil
	}

	util.Infof("Processing %d devices (fix: %v, concurrency: %d)",
		len(devices), c.config.Fix, c.config.Concurrency)

	sem := make(chan struct{}, c.config.Concurrency)
	var mu sync.Mutex
	results := make([]Result, 0, len(devices))

	var wg sync.WaitGroup
	for _, dev := range devices {
		wg.Add(1)
		go func(dev inventory.Device) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := c.processDevice(dev)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(dev)
	}
	wg.Wait()

	return results
}

// processDevice runs the per-device workflow: connect, query, classify,
// conditionally remediate, disconnect. Always returns a well-formed
// Result; a panic anywhere in the workflow is converted into a failure
// for this device alone.
func (c *Coordinator) processDevice(dev inventory.Device) (result Result) {
	result = Result{Host: dev.Host, Name: dev.Name}
	log := util.WithDevice(dev.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("internal fault processing %s: %v", dev.Host, r)
		}
	}()

	if c.config.ConnectTimeout > 0 {
		dev.Timeout = c.config.ConnectTimeout
	}

	sess, err := c.dialer.Dial(dev)
	if err != nil {
		log.Errorf("Connection failed to %s: %v", dev.Host, err)
		return result
	}
	defer sess.Close()
	result.Connected = true

	tokens, err := sess.RouteStatuses()
	if err != nil {
		log.Errorf("EVPN status query failed on %s: %v", dev.Host, err)
		return result
	}
	result.Counts = evpn.Classify(dev.Name, tokens)
	log.Infof("EVPN route status for %s: [%s]", dev.Host, result.Counts.Summary())

	if c.config.Fix && result.Counts.Rejected > 0 {
		log.Infof("Found %d rejected routes on %s", result.Counts.Rejected, dev.Host)
		result.RestartAttempted = true
		if err := sess.RestartRouting(); err != nil {
			log.Errorf("Failed to restart routing on %s: %v", dev.Host, err)
		} else {
			result.RestartSucceeded = true
		}
	}

	return result
}
