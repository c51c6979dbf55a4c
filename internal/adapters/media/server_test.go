package media_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/basis/internal/adapters/media"
	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports/mocks"
)

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o600)
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHandler_AttachmentURL(t *testing.T) {
	ctx := context.Background()
	store, err := media.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	id, err := store.Add(ctx, domain.Attachment{URL: "http://testing.dev/wp-content/uploads/logo.svg", MimeType: "image/svg+xml"})
	require.NoError(t, err)

	srv := httptest.NewServer(media.Handler(store, domain.UploadMimes(nil)))
	defer srv.Close()

	ajax := media.AjaxPath + "?action=" + media.ActionAttachmentURL + "&attachmentID="

	tests := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"known id", ajax + "1", http.StatusOK, "http://testing.dev/wp-content/uploads/logo.svg"},
		{"unknown id", ajax + "99", http.StatusOK, ""},
		{"not a number", ajax + "abc", http.StatusOK, ""},
		{"missing id", media.AjaxPath + "?action=" + media.ActionAttachmentURL, http.StatusOK, ""},
		{"unknown action", media.AjaxPath + "?action=heartbeat", http.StatusBadRequest, "0"},
	}
	require.Equal(t, int64(1), id)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, srv, tt.query)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.body, body)
		})
	}

	t.Run("post form", func(t *testing.T) {
		form := url.Values{"action": {media.ActionAttachmentURL}, "attachmentID": {"1"}}
		resp, err := http.Post(srv.URL+media.AjaxPath, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Equal(t, "http://testing.dev/wp-content/uploads/logo.svg", string(body))
	})
}

func TestHandler_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockAttachmentStore(ctrl)
	store.EXPECT().Get(gomock.Any(), int64(7)).Return(nil, errors.New("disk full"))

	srv := httptest.NewServer(media.Handler(store, nil))
	defer srv.Close()

	status, _ := get(t, srv, media.AjaxPath+"?action="+media.ActionAttachmentURL+"&attachmentID=7")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestHandler_Mimes(t *testing.T) {
	srv := httptest.NewServer(media.Handler(nil, map[string]string{
		"svg": "image/svg+xml",
		"png": "image/png",
	}))
	defer srv.Close()

	status, body := get(t, srv, media.MimesPath)
	require.Equal(t, http.StatusOK, status)

	var entries []map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &entries))
	assert.Equal(t, []map[string]string{
		{"extensions": "png", "mime_type": "image/png"},
		{"extensions": "svg", "mime_type": "image/svg+xml"},
	}, entries)
}

func TestServer_Serve(t *testing.T) {
	store, err := media.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- media.NewServer(nil).Serve(ctx, "127.0.0.1:0", store, nil)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not stop")
	}

	err = media.NewServer(nil).Serve(context.Background(), "256.1.1.1:0", store, nil)
	require.ErrorIs(t, err, domain.ErrAttachmentStoreFailed)
}
