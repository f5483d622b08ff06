package internal

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// SSHHost is one usable Host entry from an OpenSSH client config.
type SSHHost struct {
	Name         string
	Hostname     string
	User         string
	Port         string
	IdentityFile string
}

// ParseSSHConfig reads the user's SSH config (or the given path) and
// returns its concrete host entries. Wildcard entries are skipped; Include
// directives are followed once each.
func ParseSSHConfig(configPath string) ([]SSHHost, error) {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(home, ".ssh", "config")
	}

	visited := make(map[string]bool)
	return parseConfigFile(configPath, visited)
}

// FindHost resolves a host alias against parsed config entries.
func FindHost(hosts []SSHHost, name string) (SSHHost, bool) {
	for _, h := range hosts {
		if h.Name == name {
			return h, true
		}
	}
	return SSHHost{}, false
}

func parseConfigFile(configPath string, visited map[string]bool) ([]SSHHost, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}
	if visited[absPath] {
		return nil, nil
	}
	visited[absPath] = true

	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var hosts []SSHHost
	var current *SSHHost

	flush := func() {
		// wildcard patterns are defaults, not connectable hosts
		if current != nil && !strings.ContainsAny(current.Name, "*?") {
			hosts = append(hosts, *current)
		}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		key := strings.ToLower(parts[0])
		value := strings.Join(parts[1:], " ")

		switch key {
		case "include":
			includePath := expandPath(value)
			if includePath == "" {
				continue
			}
			if !filepath.IsAbs(includePath) {
				includePath = filepath.Join(filepath.Dir(configPath), includePath)
			}
			matches, err := filepath.Glob(includePath)
			if err != nil {
				continue
			}
			for _, match := range matches {
				included, err := parseConfigFile(match, visited)
				if err != nil {
					continue
				}
				hosts = append(hosts, included...)
			}
		case "host":
			flush()
			current = &SSHHost{Name: value, Port: "22"}
		case "hostname":
			if current != nil {
				current.Hostname = value
			}
		case "user":
			if current != nil {
				current.User = value
			}
		case "port":
			if current != nil {
				current.Port = value
			}
		case "identityfile":
			if current != nil {
				current.IdentityFile = expandPath(value)
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hosts, nil
}

// expandPath resolves ~ and bare filenames for key material, refusing
// anything that escapes ~/.ssh or /etc/ssh. Returns "" for paths it will
// not touch.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	path = filepath.Clean(path)
	if strings.Contains(path, "..") {
		return ""
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		expanded := filepath.Join(home, path[2:])

		absHome, err := filepath.Abs(home)
		if err != nil {
			return ""
		}
		absPath, err := filepath.Abs(expanded)
		if err != nil {
			return ""
		}
		if !strings.HasPrefix(absPath, absHome) {
			return ""
		}
		return expanded
	}

	if filepath.IsAbs(path) {
		home, _ := os.UserHomeDir()
		sshDir := filepath.Join(home, ".ssh")

		absPath, err := filepath.Abs(path)
		if err != nil {
			return ""
		}
		if strings.HasPrefix(absPath, sshDir) || strings.HasPrefix(absPath, "/etc/ssh") {
			return path
		}
		return ""
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", path)
}
