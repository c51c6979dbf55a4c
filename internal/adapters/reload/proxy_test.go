package reload_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.trai.ch/basis/internal/adapters/reload"
	"go.trai.ch/basis/internal/core/domain"
)

func TestInjectSnippet(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "before closing body",
			in:   "<html><body><p>hi</p></body></html>",
			want: `<html><body><p>hi</p><script async src="/basis/client.js"></script></body></html>`,
		},
		{
			name: "upper case tag",
			in:   "<BODY>x</BODY>",
			want: `<BODY>x<script async src="/basis/client.js"></script></BODY>`,
		},
		{
			name: "last body tag",
			in:   "<body><pre>&lt;/body&gt;</body></body>",
			want: `<body><pre>&lt;/body&gt;</body><script async src="/basis/client.js"></script></body>`,
		},
		{
			name: "no body",
			in:   "<p>fragment</p>",
			want: `<p>fragment</p><script async src="/basis/client.js"></script>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(reload.InjectSnippet([]byte(tt.in))))
		})
	}
}

func TestProxy(t *testing.T) {
	var upstreamHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The transport may negotiate gzip itself, never what the browser offered.
		assert.NotContains(t, r.Header.Get("Accept-Encoding"), "br")
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=UTF-8")
			_, _ = io.WriteString(w, `<html><body><a href="http://`+upstreamHost+`/about">about</a></body></html>`)
		case "/style.css":
			w.Header().Set("Content-Type", "text/css")
			_, _ = io.WriteString(w, "a{color:red}")
		case "/wp-admin":
			http.Redirect(w, r, "http://"+upstreamHost+"/wp-login.php", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()
	upstreamHost = upstream.Listener.Addr().String()

	handler, err := reload.NewServer(nil).Handler(domain.ReloadSettings{Enabled: true, Proxy: upstream.URL})
	require.NoError(t, err)
	proxy := httptest.NewServer(handler)
	defer proxy.Close()
	proxyHost := proxy.Listener.Addr().String()

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	t.Run("html is injected", func(t *testing.T) {
		resp, err := noRedirect.Get(proxy.URL + "/")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)

		want := `<html><body><a href="http://` + proxyHost + `/about">about</a>` +
			`<script async src="/basis/client.js"></script></body></html>`
		assert.Equal(t, want, string(body))
		assert.Equal(t, strconv.Itoa(len(want)), resp.Header.Get("Content-Length"))
	})

	t.Run("browser encodings are not forwarded", func(t *testing.T) {
		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, proxy.URL+"/", nil)
		require.NoError(t, err)
		req.Header.Set("Accept-Encoding", "br")

		resp, err := noRedirect.Do(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)

		assert.Empty(t, resp.Header.Get("Content-Encoding"))
		assert.Contains(t, string(body), `<script async src="/basis/client.js"></script></body>`)
	})

	t.Run("assets pass through", func(t *testing.T) {
		resp, err := noRedirect.Get(proxy.URL + "/style.css")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, "a{color:red}", string(body))
	})

	t.Run("redirects stay on the proxy", func(t *testing.T) {
		resp, err := noRedirect.Get(proxy.URL + "/wp-admin")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "http://"+proxyHost+"/wp-login.php", resp.Header.Get("Location"))
	})
}

func TestNewProxy_InvalidTarget(t *testing.T) {
	_, err := reload.NewProxy("://bad")
	require.ErrorIs(t, err, domain.ErrReloadServerFailed)

	_, err = reload.NewProxy("testing.dev")
	require.ErrorIs(t, err, domain.ErrReloadServerFailed)
}
