// Package inventory loads the device inventory from a YAML hosts file.
//
// The hosts file has a defaults block and host_groups, each group holding
// per-host entries. Host entries win over defaults. A host whose password
// cannot be resolved is dropped with a warning rather than failing the load.
package inventory

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/routewatch-net/routewatch/pkg/util"
)

const (
	// DefaultPort is the management port used when a host specifies none.
	DefaultPort = 22

	// DefaultTimeout is the connect timeout used when a host specifies none.
	DefaultTimeout = 30 * time.Second
)

// Device is the resolved, immutable connection record for one managed
// device. Constructed once during load and consumed by exactly one
// workflow run.
type Device struct {
	Host     string
	Name     string
	Username string
	Password string
	Port     int
	Timeout  time.Duration
	Tags     []string
}

// Addr returns the "host:port" dial address.
func (d Device) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// Display returns the "name:host" form used in reports and logs.
func (d Device) Display() string {
	return d.Name + ":" + d.Host
}

type hostEntry struct {
	Host     string   `yaml:"host"`
	Name     string   `yaml:"name"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Port     int      `yaml:"port"`
	Timeout  int      `yaml:"timeout"`
	Tags     []string `yaml:"tags"`
}

type defaultsBlock struct {
	AdminUser    string            `yaml:"admin_user"`
	Username     string            `yaml:"username"`
	Password     string            `yaml:"password"`
	Port         int               `yaml:"port"`
	Timeout      int               `yaml:"timeout"`
	UserPassword map[string]string `yaml:"user_password"`
}

type hostsFile struct {
	Defaults   defaultsBlock          `yaml:"defaults"`
	HostGroups map[string][]hostEntry `yaml:"host_groups"`
}

// Load reads and resolves the inventory at path.
func Load(path string) ([]Device, error) {
	return LoadWithFallback(path, "")
}

// LoadWithFallback is Load with a fallback password applied to hosts
// whose password cannot be resolved from the file. With an empty
// fallback, such hosts are dropped with a warning.
func LoadWithFallback(path, fallbackPassword string) ([]Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("hosts file %s: %w", path, util.ErrNotFound)
		}
		return nil, fmt.Errorf("reading hosts file: %w", err)
	}

	var file hostsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing hosts file %s: %w", path, err)
	}

	// Group iteration is sorted so load order is stable across runs.
	groups := make([]string, 0, len(file.HostGroups))
	for name := range file.HostGroups {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	var devices []Device
	for _, group := range groups {
		for _, entry := range file.HostGroups[group] {
			dev, err := resolve(file.Defaults, entry, fallbackPassword)
			if err != nil {
				util.Warnf("skipping host in group %s: %v", group, err)
				continue
			}
			devices = append(devices, dev)
		}
	}

	util.Infof("Loaded %d devices from %s", len(devices), path)
	return devices, nil
}

// resolve merges defaults with a host entry (host wins) and resolves the
// password. Returns an error when the entry is unusable; the caller drops
// it and continues.
func resolve(defaults defaultsBlock, entry hostEntry, fallbackPassword string) (Device, error) {
	username := entry.Username
	if username == "" {
		username = defaults.Username
	}
	if username == "" {
		username = defaults.AdminUser
	}

	password := entry.Password
	if password == "" {
		password = defaults.Password
	}
	if password == "" && defaults.UserPassword != nil {
		password = defaults.UserPassword[username]
	}
	if password == "" {
		password = fallbackPassword
	}

	v := &util.ValidationBuilder{}
	v.Add(entry.Host != "", "entry has no host")
	if entry.Port < 0 || entry.Port > 65535 {
		v.AddErrorf("port %d out of range for %s", entry.Port, entry.Host)
	}
	if entry.Timeout < 0 {
		v.AddErrorf("negative timeout %d for %s", entry.Timeout, entry.Host)
	}
	if password == "" {
		v.AddErrorf("no password found for %s", entry.Host)
	}
	if err := v.Build(); err != nil {
		return Device{}, err
	}

	name := entry.Name
	if name == "" {
		name = entry.Host
	}

	port := entry.Port
	if port == 0 {
		port = defaults.Port
	}
	if port == 0 {
		port = DefaultPort
	}

	timeout := entry.Timeout
	if timeout == 0 {
		timeout = defaults.Timeout
	}
	dev := Device{
		Host:     entry.Host,
		Name:     name,
		Username: username,
		Password: password,
		Port:     port,
		Timeout:  DefaultTimeout,
		Tags:     entry.Tags,
	}
	if timeout > 0 {
		dev.Timeout = time.Duration(timeout) * time.Second
	}
	return dev, nil
}
