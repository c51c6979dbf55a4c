package reload_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	client "github.com/zishang520/socket.io-client-go/socket"
	"go.uber.org/mock/gomock"

	"go.trai.ch/basis/internal/adapters/reload"
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports/mocks"
)

// connect opens a browser-like session against the test server.
func connect(t *testing.T, baseURL string) *client.Socket {
	t.Helper()

	opts := client.DefaultOptions()
	opts.SetPath(reload.SocketPath)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := client.NewManager(baseURL, opts)
	sock := manager.Socket("/", opts)
	t.Cleanup(func() { sock.Disconnect() })
	return sock
}

func startServer(t *testing.T, s *reload.Server, settings domain.ReloadSettings) *httptest.Server {
	t.Helper()
	handler, err := s.Handler(settings)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_BroadcastWithoutSessions(t *testing.T) {
	s := reload.NewServer(nil)

	require.NoError(t, s.Broadcast(context.Background(), domain.ReloadEvent{Mode: domain.ReloadFull}))
	assert.Equal(t, 0, s.Sessions())

	startServer(t, s, domain.ReloadSettings{Enabled: true})
	require.NoError(t, s.Broadcast(context.Background(), domain.ReloadEvent{
		Mode:  domain.ReloadInject,
		Paths: []string{"style.css"},
	}))
}

func TestServer_BroadcastToSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info("browser connected (1 sessions)")

	s := reload.NewServer(log)
	srv := startServer(t, s, domain.ReloadSettings{Enabled: true})

	injected := make(chan []any, 1)
	reloaded := make(chan struct{}, 1)
	sock := connect(t, srv.URL)
	_ = sock.On(types.EventName(reload.EventInject), func(args ...any) { injected <- args })
	_ = sock.On(types.EventName(reload.EventReload), func(...any) { reloaded <- struct{}{} })
	sock.Connect()

	require.Eventually(t, func() bool { return s.Sessions() == 1 }, 10*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Broadcast(context.Background(), domain.ReloadEvent{
		Mode:  domain.ReloadInject,
		Paths: []string{"style.css"},
	}))
	select {
	case args := <-injected:
		require.Len(t, args, 1)
		assert.Equal(t, []any{"style.css"}, args[0])
	case <-time.After(10 * time.Second):
		t.Fatal("no inject event received")
	}

	require.NoError(t, s.Broadcast(context.Background(), domain.ReloadEvent{Mode: domain.ReloadNone}))
	require.NoError(t, s.Broadcast(context.Background(), domain.ReloadEvent{Mode: domain.ReloadFull}))
	select {
	case <-reloaded:
	case <-time.After(10 * time.Second):
		t.Fatal("no reload event received")
	}

	sock.Disconnect()
	require.Eventually(t, func() bool { return s.Sessions() == 0 }, 10*time.Second, 20*time.Millisecond)
}

func TestServer_ClientScript(t *testing.T) {
	srv := startServer(t, reload.NewServer(nil), domain.ReloadSettings{Enabled: true})

	resp, err := http.Get(srv.URL + reload.ClientPath)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/javascript")
	assert.Contains(t, string(body), reload.SocketPath)

	post, err := http.Post(srv.URL+reload.ClientPath, "text/plain", nil)
	require.NoError(t, err)
	_ = post.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, post.StatusCode)
}

func TestServer_StatusPage(t *testing.T) {
	srv := startServer(t, reload.NewServer(nil), domain.ReloadSettings{Enabled: true})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "0 session(s)")

	missing, err := http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	_ = missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestServer_Serve(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		err := reload.NewServer(nil).Serve(context.Background(), domain.ReloadSettings{})
		require.NoError(t, err)
	})

	t.Run("invalid address", func(t *testing.T) {
		err := reload.NewServer(nil).Serve(context.Background(), domain.ReloadSettings{
			Enabled: true,
			Addr:    "256.0.0.1:99999",
		})
		require.ErrorIs(t, err, domain.ErrReloadServerFailed)
	})

	t.Run("invalid proxy", func(t *testing.T) {
		err := reload.NewServer(nil).Serve(context.Background(), domain.ReloadSettings{
			Enabled: true,
			Addr:    "127.0.0.1:0",
			Proxy:   "http://",
		})
		require.ErrorIs(t, err, domain.ErrReloadServerFailed)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- reload.NewServer(nil).Serve(ctx, domain.ReloadSettings{Enabled: true, Addr: "127.0.0.1:0"})
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("Serve did not return after cancel")
		}
	})
}
