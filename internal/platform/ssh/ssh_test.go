package ssh

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/ssh"

	"github.com/cwagner/k3forge/internal/util/keygen"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	keyPair, err := keygen.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	return keyPair.PrivateKey
}

func TestNewClient_AppliesDefaults(t *testing.T) {
	t.Parallel()
	client, err := NewClient(&Config{
		Host:       "192.0.2.1",
		User:       "root",
		PrivateKey: testKey(t),
	})

	require.NoError(t, err)
	assert.Equal(t, defaultPort, client.config.Port)
	assert.Equal(t, defaultDialTimeout, client.config.DialTimeout)
	assert.Equal(t, defaultMaxRetries, client.config.MaxRetries)
	assert.Equal(t, defaultRetryDelay, client.config.RetryDelay)
	assert.NotNil(t, client.signer)
}

func TestNewClient_PreservesCustomValues(t *testing.T) {
	t.Parallel()
	client, err := NewClient(&Config{
		Host:        "192.0.2.1",
		Port:        2222,
		User:        "admin",
		PrivateKey:  testKey(t),
		DialTimeout: 5 * time.Second,
		MaxRetries:  10,
		RetryDelay:  2 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, 2222, client.config.Port)
	assert.Equal(t, 5*time.Second, client.config.DialTimeout)
	assert.Equal(t, 10, client.config.MaxRetries)
	assert.Equal(t, 2*time.Second, client.config.RetryDelay)
}

func TestNewClient_DoesNotMutateCaller(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Host:       "192.0.2.1",
		User:       "root",
		PrivateKey: testKey(t),
	}

	_, err := NewClient(cfg)

	require.NoError(t, err)
	assert.Zero(t, cfg.Port)
	assert.Zero(t, cfg.DialTimeout)
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()
	key := testKey(t)

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{"nil config", nil, "config cannot be nil"},
		{"empty host", &Config{User: "root", PrivateKey: key}, "host cannot be empty"},
		{"empty user", &Config{Host: "192.0.2.1", PrivateKey: key}, "user cannot be empty"},
		{"empty key", &Config{Host: "192.0.2.1", User: "root"}, "private key cannot be empty"},
		{"invalid key", &Config{Host: "192.0.2.1", User: "root", PrivateKey: []byte("junk")}, "failed to parse private key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// startStuckServer runs a local SSH server that accepts every session and
// exec request but never produces output or an exit status, simulating a
// hung remote command. Returns the host and port to dial.
func startStuckServer(t *testing.T) (string, int) {
	t.Helper()

	hostPair, err := keygen.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	hostSigner, err := ssh.ParsePrivateKey(hostPair.PrivateKey)
	require.NoError(t, err)

	serverConfig := &ssh.ServerConfig{NoClientAuth: true}
	serverConfig.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, acceptErr := listener.Accept()
			if acceptErr != nil {
				return
			}
			go func() {
				serverConn, chans, reqs, handshakeErr := ssh.NewServerConn(conn, serverConfig)
				if handshakeErr != nil {
					return
				}
				defer func() { _ = serverConn.Close() }()
				go ssh.DiscardRequests(reqs)
				for newChannel := range chans {
					_, channelReqs, acceptChanErr := newChannel.Accept()
					if acceptChanErr != nil {
						continue
					}
					// Acknowledge exec requests, then sit on the channel
					// without ever sending output or exit-status.
					go func(requests <-chan *ssh.Request) {
						for req := range requests {
							if req.WantReply {
								_ = req.Reply(true, nil)
							}
						}
					}(channelReqs)
				}
			}()
		}
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func stuckServerClient(t *testing.T) *Client {
	t.Helper()
	host, port := startStuckServer(t)
	client, err := NewClient(&Config{
		Host:       host,
		Port:       port,
		User:       "root",
		PrivateKey: testKey(t),
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestExecute_HonorsContextDeadline(t *testing.T) {
	t.Parallel()
	client := stuckServerClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Execute(ctx, "sleep 600")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second, "a hung remote command must not outlive the deadline")
}

func TestUpload_HonorsContextDeadline(t *testing.T) {
	t.Parallel()
	client := stuckServerClient(t)

	localDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(localDir, "inventory.ini"), []byte("[all]\n"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := client.Upload(ctx, localDir, "/etc/k3forge")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExecute_CancelledContext(t *testing.T) {
	t.Parallel()
	client, err := NewClient(&Config{
		Host:       "192.0.2.1",
		User:       "root",
		PrivateKey: testKey(t),
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Execute(ctx, "echo test")
	require.Error(t, err)
}
