package internal

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHClient holds one open connection to a monitored host.
type SSHClient struct {
	client *ssh.Client
	host   SSHHost
}

// NewSSHClient dials the host using, in order, its configured identity
// file, the SSH agent, and the default key files. Host keys are verified
// against known_hosts; unknown hosts are rejected rather than prompted,
// since the dashboard owns the terminal.
func NewSSHClient(host SSHHost) (*SSHClient, error) {
	if host.Hostname == "" {
		host.Hostname = host.Name
	}
	if host.User == "" {
		host.User = validatedUsername()
	}
	if host.Port == "" {
		host.Port = "22"
	}

	var authMethods []ssh.AuthMethod

	if host.IdentityFile != "" {
		if keyAuth, err := publicKeyAuth(host.IdentityFile); err == nil {
			authMethods = append(authMethods, keyAuth)
		}
	}

	if agentAuth, err := sshAgentAuth(); err == nil {
		authMethods = append(authMethods, agentAuth)
	}

	if home, err := os.UserHomeDir(); err == nil {
		defaultKeys := []string{
			filepath.Join(home, ".ssh", "id_rsa"),
			filepath.Join(home, ".ssh", "id_ed25519"),
			filepath.Join(home, ".ssh", "id_ecdsa"),
		}
		for _, keyPath := range defaultKeys {
			if keyPath == host.IdentityFile {
				continue
			}
			if keyAuth, err := publicKeyAuth(keyPath); err == nil {
				authMethods = append(authMethods, keyAuth)
			}
		}
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no authentication methods available for %s", host.Name)
	}

	hostKeyCallback, err := hostKeyCallback()
	if err != nil {
		return nil, fmt.Errorf("failed to setup host key verification: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            host.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(host.Hostname, host.Port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &SSHClient{client: client, host: host}, nil
}

// ExecuteCommand runs one allowlisted command and returns its combined
// output. The signature deliberately matches npu.RunCmdFunc.
func (c *SSHClient) ExecuteCommand(cmd string) (string, error) {
	if !isAllowedCommand(cmd) {
		return "", fmt.Errorf("command not in allowed list: %s", cmd)
	}

	session, err := c.client.NewSession()
	if err != nil {
		return "", err
	}
	defer session.Close()

	output, err := session.CombinedOutput(cmd)
	return string(output), err
}

func (c *SSHClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// isAllowedCommand keeps remote execution to the handful of read-only
// sampling commands this tool issues.
func isAllowedCommand(cmd string) bool {
	allowedPrefixes := []string{
		"npu-smi ",
		"which ",
		"top -",
		"free -",
		"cat /proc/",
	}

	cmd = strings.TrimSpace(cmd)
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}

func hostKeyCallback() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("unable to get user home directory: %w", err)
	}

	knownHostsPath := filepath.Join(home, ".ssh", "known_hosts")

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("unable to create .ssh directory: %w", err)
		}
		if _, err := os.Create(knownHostsPath); err != nil {
			return nil, fmt.Errorf("unable to create known_hosts file: %w", err)
		}
	}

	verify, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load known_hosts: %w", err)
	}

	return ssh.HostKeyCallback(func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}
		if keyErr, ok := err.(*knownhosts.KeyError); ok {
			if len(keyErr.Want) > 0 {
				return fmt.Errorf("host key verification failed: host key has changed for %s. Remove the old key from %s if you trust this connection", hostname, knownHostsPath)
			}
			return fmt.Errorf("host key verification failed: %s is not in known_hosts. Run 'ssh %s' once to accept the host key", hostname, hostname)
		}
		return fmt.Errorf("host key verification failed: %w", err)
	}), nil
}

func publicKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		// encrypted keys need a passphrase we cannot ask for; the agent
		// handles those
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func sshAgentAuth() (ssh.AuthMethod, error) {
	socket := validatedAuthSock()
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK not set or invalid")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH agent: %w", err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

func validatedUsername() string {
	user := os.Getenv("USER")
	if user == "" || len(user) > 32 {
		return ""
	}
	for _, char := range user {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-' || char == '.') {
			return ""
		}
	}
	return user
}

func validatedAuthSock() string {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" || !filepath.IsAbs(socket) {
		return ""
	}

	cleanSocket := filepath.Clean(socket)
	if strings.Contains(cleanSocket, "..") {
		return ""
	}

	validPrefixes := []string{"/tmp/", "/var/run/", "/run/"}
	if tmpDir := os.Getenv("TMPDIR"); tmpDir != "" {
		validPrefixes = append(validPrefixes, tmpDir)
	}
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(cleanSocket, prefix) {
			return socket
		}
	}

	if info, err := os.Stat(socket); err == nil {
		if info.Mode()&os.ModeSocket != 0 {
			return socket
		}
	}
	return ""
}
