package server

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		network string
	}{
		{name: "host and port", addr: "127.0.0.1:0", network: "tcp"},
		{name: "tcp scheme", addr: "tcp://127.0.0.1:0", network: "tcp"},
		{name: "unix socket", addr: "unix://" + filepath.Join(t.TempDir(), "run", "gw.sock"), network: "unix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ln, err := Listen(t.Context(), tt.addr)
			require.NoError(t, err)
			t.Cleanup(func() { _ = ln.Close() })

			assert.Equal(t, tt.network, ln.Addr().Network())

			conn, err := net.Dial(ln.Addr().Network(), ln.Addr().String())
			require.NoError(t, err)
			_ = conn.Close()
		})
	}
}

func TestListen_Errors(t *testing.T) {
	t.Parallel()

	_, err := Listen(t.Context(), "fd://stdin")
	require.ErrorContains(t, err, "invalid file descriptor")

	_, err = Listen(t.Context(), "npipe://meshchat")
	require.ErrorContains(t, err, "unsupported listen address")
}
