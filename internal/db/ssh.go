package db

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig holds SSH connection details
type SSHConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string
	// KnownHostsPath defaults to ~/.ssh/known_hosts. When the file does not
	// exist host keys are not verified.
	KnownHostsPath string
}

// SSHTunnel represents an active SSH connection that can dial
type SSHTunnel struct {
	client *ssh.Client
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// authMethods collects key file, agent and password authentication in that
// order of preference.
func authMethods(config *SSHConfig, logger *zap.Logger) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if config.KeyPath != "" {
		keyPath := expandHome(config.KeyPath)
		key, err := os.ReadFile(keyPath)
		if err != nil {
			logger.Warn("read private key", zap.String("path", keyPath), zap.Error(err))
		} else {
			signer, err := ssh.ParsePrivateKey(key)
			if err != nil && config.Password != "" {
				signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(config.Password))
			}
			if err != nil {
				logger.Warn("parse private key", zap.String("path", keyPath), zap.Error(err))
			} else {
				logger.Debug("loaded private key", zap.String("type", signer.PublicKey().Type()))
				methods = append(methods, ssh.PublicKeys(signer))
			}
		}
	}

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			logger.Warn("dial ssh agent", zap.Error(err))
		} else {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if config.Password != "" {
		methods = append(methods, ssh.Password(config.Password))
		// Some servers only offer keyboard-interactive for passwords.
		methods = append(methods, ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = config.Password
			}
			return answers, nil
		}))
	}

	return methods
}

func hostKeyCallback(config *SSHConfig, logger *zap.Logger) (ssh.HostKeyCallback, error) {
	path := config.KnownHostsPath
	if path == "" {
		path = "~/.ssh/known_hosts"
	}
	path = expandHome(path)
	if _, err := os.Stat(path); err != nil {
		logger.Warn("known_hosts not found, host key not verified", zap.String("path", path))
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return knownhosts.New(path)
}

// NewSSHTunnel establishes an SSH connection
func NewSSHTunnel(config *SSHConfig, logger *zap.Logger) (*SSHTunnel, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("SSH host is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ssh")

	methods := authMethods(config, logger)
	if len(methods) == 0 {
		return nil, fmt.Errorf("no valid SSH authentication methods found")
	}

	hostKeys, err := hostKeyCallback(config, logger)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}

	port := config.Port
	if port == 0 {
		port = 22
	}
	address := fmt.Sprintf("%s:%d", config.Host, port)

	logger.Debug("dialing", zap.String("addr", address), zap.String("user", config.User), zap.Int("auth_methods", len(methods)))
	client, err := ssh.Dial("tcp", address, &ssh.ClientConfig{
		User:            config.User,
		Auth:            methods,
		HostKeyCallback: hostKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}
	logger.Debug("connected", zap.String("addr", address))

	return &SSHTunnel{client: client}, nil
}

// Dial connects to a remote address through the tunnel
func (t *SSHTunnel) Dial(network, addr string) (net.Conn, error) {
	return t.client.Dial(network, addr)
}

// DialContext connects to a remote address through the tunnel with context support
func (t *SSHTunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return t.client.DialContext(ctx, network, addr)
}

// Close closes the SSH connection
func (t *SSHTunnel) Close() error {
	return t.client.Close()
}
