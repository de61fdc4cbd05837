// Routewatch - EVPN Route Status Auditor
//
// A CLI tool that audits EVPN route acceptance across a fleet of network
// devices and optionally remediates rejected routes:
//   - Loads a YAML device inventory (defaults + host groups)
//   - Connects to each device over the NETCONF management plane
//   - Classifies advertised routes by acceptance status
//   - With --fix, restarts routing on devices with rejected routes
//
// Examples:
//
//	routewatch --hosts-file data/hosts.yaml --rules-file data/rules.yaml
//	routewatch --hosts-file data/hosts.yaml --fix
//	routewatch --hosts-file data/hosts.yaml --log-level debug --max-concurrent 20
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/routewatch-net/routewatch/pkg/cli"
	"github.com/routewatch-net/routewatch/pkg/device"
	"github.com/routewatch-net/routewatch/pkg/fleet"
	"github.com/routewatch-net/routewatch/pkg/inventory"
	"github.com/routewatch-net/routewatch/pkg/rules"
	"github.com/routewatch-net/routewatch/pkg/util"
	"github.com/routewatch-net/routewatch/pkg/version"
)

var (
	hostsFile      string
	rulesFile      string
	fixMode        bool
	logLevel       string
	maxConcurrent  int
	promptPassword bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error: ")+err.Error())
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "routewatch",
	Short:         "EVPN route status auditor",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Routewatch audits EVPN route acceptance across a device fleet.

It connects to every device in the inventory, counts advertised routes by
acceptance status, and reports fleet-wide totals. With --fix, devices
reporting rejected routes get their routing process restarted.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&hostsFile, "hosts-file", "data/hosts.yaml", "YAML device inventory")
	rootCmd.Flags().StringVar(&rulesFile, "rules-file", "data/rules.yaml", "YAML rules file (performance, logging)")
	rootCmd.Flags().BoolVar(&fixMode, "fix", false, "Restart routing on devices with rejected routes")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "Max concurrent device connections (overrides rules file)")
	rootCmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "Prompt for a fallback password for hosts without one")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("routewatch %s\n", version.Info())
	},
}

func run(cmd *cobra.Command, args []string) error {
	if err := util.SetLogLevel(logLevel); err != nil {
		return fmt.Errorf("log level %q: %w", logLevel, err)
	}

	// Preflight: missing input files are a hard failure, before any
	// device work starts.
	if _, err := os.Stat(hostsFile); err != nil {
		return fmt.Errorf("hosts file %q not found", hostsFile)
	}
	if _, err := os.Stat(rulesFile); err != nil {
		return fmt.Errorf("rules file %q not found", rulesFile)
	}

	// An unparseable rules file degrades to defaults; the audit itself
	// does not depend on it.
	runRules, err := rules.Load(rulesFile)
	if err != nil {
		util.Warnf("Ignoring rules file: %v", err)
		runRules = &rules.Rules{}
	}
	if err := runRules.ApplyLogging(time.Now()); err != nil {
		util.Warnf("Could not configure file logging: %v", err)
	}

	fallbackPassword := ""
	if promptPassword {
		fallbackPassword, err = readPassword()
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}

	devices, err := inventory.LoadWithFallback(hostsFile, fallbackPassword)
	if err != nil {
		// A no-op run, not a crash: the report below shows zero devices.
		util.Errorf("Failed to load hosts from %s: %v", hostsFile, err)
		devices = nil
	}

	config := fleet.Config{
		Concurrency: maxConcurrent,
		Fix:         fixMode,
	}
	if config.Concurrency == 0 {
		config.Concurrency = runRules.Performance.MaxConcurrentDevices
	}
	if runRules.Performance.ConnectionTimeout > 0 {
		config.ConnectTimeout = time.Duration(runRules.Performance.ConnectionTimeout) * time.Second
	}

	dialer := fleet.DialFunc(func(dev inventory.Device) (fleet.Session, error) {
		return device.Dial(dev)
	})

	results := fleet.NewCoordinator(config, dialer).Run(devices)
	report := fleet.Aggregate(results, fixMode)
	report.Render(os.Stdout)
	fmt.Println(verdict(report))

	return nil
}

// verdict is the one-line colored outcome printed after the report.
func verdict(report *fleet.Report) string {
	var status string
	switch {
	case len(report.Rejected) > 0:
		status = cli.Red(fmt.Sprintf("%d device(s) with rejected routes", len(report.Rejected)))
	case len(report.Failed) > 0:
		status = cli.Yellow(fmt.Sprintf("%d device(s) unreachable", len(report.Failed)))
	default:
		status = cli.Green("all advertised routes accepted")
	}
	return cli.Bold("Result: ") + status
}

// readPassword prompts on stderr and reads without echo.
func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Fallback password: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pass), nil
}
