package reload

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"

	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
)

// snippet is inserted before the closing body tag of proxied pages.
const snippet = `<script async src="` + ClientPath + `"></script>`

var errMissingHost = zerr.New("proxy target has no host")

type originalHostKey struct{}

// NewProxy returns a reverse proxy to target that injects the reload client
// into HTML pages and rewrites links and redirects to the target host so
// browsing stays on the proxy.
func NewProxy(target string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		if err == nil {
			err = errMissingHost
		}
		return nil, zerr.With(domain.Caused(domain.ErrReloadServerFailed, err), "proxy", target)
	}

	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(u)
			r.Out.Host = u.Host
			r.SetXForwarded()
			// Drop the browser's encodings. The transport then negotiates gzip
			// and decodes it, so ModifyResponse sees plain bodies.
			r.Out.Header.Del("Accept-Encoding")
			r.Out = r.Out.WithContext(context.WithValue(r.Out.Context(), originalHostKey{}, r.In.Host))
		},
		ModifyResponse: func(resp *http.Response) error {
			host, _ := resp.Request.Context().Value(originalHostKey{}).(string)
			rewriteLocation(resp, u, host)
			if !isHTML(resp) {
				return nil
			}
			return injectSnippet(resp, u, host)
		},
	}, nil
}

func isHTML(resp *http.Response) bool {
	if resp.Header.Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mediaType == "text/html"
}

// rewriteLocation points redirects to the target back at the proxy.
func rewriteLocation(resp *http.Response, target *url.URL, host string) {
	location := resp.Header.Get("Location")
	if location == "" || host == "" {
		return
	}
	loc, err := url.Parse(location)
	if err != nil || loc.Host != target.Host {
		return
	}
	loc.Scheme = "http"
	loc.Host = host
	resp.Header.Set("Location", loc.String())
}

func injectSnippet(resp *http.Response, target *url.URL, host string) error {
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}

	if host != "" {
		body = bytes.ReplaceAll(body, []byte("//"+target.Host), []byte("//"+host))
	}
	body = InjectSnippet(body)

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return nil
}

// InjectSnippet inserts the reload client script before the last closing
// body tag, or appends it when the page has none.
func InjectSnippet(html []byte) []byte {
	i := lastIndexFold(html, []byte("</body>"))
	if i < 0 {
		return append(html, snippet...)
	}
	out := make([]byte, 0, len(html)+len(snippet))
	out = append(out, html[:i]...)
	out = append(out, snippet...)
	return append(out, html[i:]...)
}

func lastIndexFold(s, sub []byte) int {
	for i := len(s) - len(sub); i >= 0; i-- {
		if bytes.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
