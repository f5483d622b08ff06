package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alpindale/npu-dashboard/internal"
	"github.com/alpindale/npu-dashboard/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

const defaultInterval = 2 * time.Second

func main() {
	updateInterval := flag.Int("interval", 0, "Refresh interval in seconds (default: 2, or NPU_DASHBOARD_INTERVAL env var)")
	hostsFlag := flag.String("hosts", "", "Comma-separated SSH config host names to monitor")
	remote := flag.Bool("remote", false, "Choose SSH hosts from an interactive list")
	reportFile := flag.String("report", "", "Replay a captured npu-smi report from a file")
	once := flag.Bool("once", false, "Print one snapshot as plain tables and exit")
	logFile := flag.String("log", "", "Write diagnostic logs to a file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(internal.FullVersion())
		return
	}

	if err := internal.InitLogging(*logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer internal.Log().Sync()

	interval := resolveInterval(*updateInterval)

	targets, selected, err := buildTargets(*hostsFlag, *remote, *reportFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *once {
		if len(selected) == 0 {
			selected = targets
		}
		if err := dumpOnce(selected); err != nil {
			os.Exit(1)
		}
		return
	}

	var model ui.Model
	if len(selected) > 0 {
		model = ui.InitialModelWithTargets(targets, selected, interval)
	} else {
		model = ui.InitialModel(targets, interval)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// resolveInterval applies CLI flag > env var > default.
func resolveInterval(flagSeconds int) time.Duration {
	if flagSeconds > 0 {
		return time.Duration(flagSeconds) * time.Second
	}
	if env := os.Getenv("NPU_DASHBOARD_INTERVAL"); env != "" {
		if seconds, err := strconv.Atoi(env); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultInterval
}

// buildTargets decides what to monitor. selected is empty when the user
// should pick from the list interactively.
func buildTargets(hostsFlag string, remote bool, reportFile string) (targets, selected []ui.Target, err error) {
	modes := 0
	for _, on := range []bool{hostsFlag != "", remote, reportFile != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return nil, nil, fmt.Errorf("flags -hosts, -remote and -report are mutually exclusive")
	}

	switch {
	case reportFile != "":
		t := ui.Target{Name: filepath.Base(reportFile), ReportFile: reportFile}
		return []ui.Target{t}, []ui.Target{t}, nil

	case remote:
		hosts, err := internal.ParseSSHConfig("")
		if err != nil {
			return nil, nil, fmt.Errorf("parsing SSH config: %w", err)
		}
		if len(hosts) == 0 {
			return nil, nil, fmt.Errorf("no hosts found in SSH config")
		}
		return hostTargets(hosts), nil, nil

	case hostsFlag != "":
		hosts, err := internal.ParseSSHConfig("")
		if err != nil {
			return nil, nil, fmt.Errorf("parsing SSH config: %w", err)
		}
		targets = hostTargets(hosts)
		for _, name := range strings.Split(hostsFlag, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			host, ok := internal.FindHost(hosts, name)
			if !ok {
				return nil, nil, fmt.Errorf("host %q not found in SSH config", name)
			}
			selected = append(selected, ui.Target{Name: host.Name, Host: host})
		}
		if len(selected) == 0 {
			return nil, nil, fmt.Errorf("no host names given to -hosts")
		}
		return targets, selected, nil

	default:
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "local"
		}
		t := ui.Target{Name: name, Local: true}
		return []ui.Target{t}, []ui.Target{t}, nil
	}
}

func hostTargets(hosts []internal.SSHHost) []ui.Target {
	targets := make([]ui.Target, len(hosts))
	for i, h := range hosts {
		targets[i] = ui.Target{Name: h.Name, Host: h}
	}
	return targets
}
