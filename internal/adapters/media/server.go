package media

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/core/ports"
)

const (
	// AjaxPath is the WordPress admin ajax endpoint.
	AjaxPath = "/wp-admin/admin-ajax.php"
	// MimesPath lists the allowed upload types.
	MimesPath = "/mimes"
	// ActionAttachmentURL is the ajax action answering an attachment URL.
	ActionAttachmentURL = "svg_get_attachment_url"

	shutdownTimeout = 5 * time.Second
)

var _ ports.MediaServer = (*Server)(nil)

// Server serves the attachment endpoints.
type Server struct {
	logger ports.Logger
}

// NewServer creates a Server.
func NewServer(logger ports.Logger) *Server {
	return &Server{logger: logger}
}

// Handler returns the HTTP handler for store and the upload mime table.
func Handler(store ports.AttachmentStore, mimes map[string]string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(AjaxPath, func(w http.ResponseWriter, r *http.Request) {
		serveAjax(w, r, store)
	})
	mux.HandleFunc("GET "+MimesPath, func(w http.ResponseWriter, _ *http.Request) {
		serveMimes(w, mimes)
	})
	return mux
}

// Serve answers requests on addr until ctx is canceled.
func (s *Server) Serve(ctx context.Context, addr string, store ports.AttachmentStore, mimes map[string]string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return zerr.With(domain.Caused(domain.ErrAttachmentStoreFailed, err), "addr", addr)
	}

	srv := &http.Server{Handler: Handler(store, mimes), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	if s.logger != nil {
		s.logger.Info("media endpoint listening on " + listener.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return domain.Caused(domain.ErrAttachmentStoreFailed, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// serveAjax answers like WordPress: "0" with 400 for unknown actions, the
// attachment URL or an empty body otherwise.
func serveAjax(w http.ResponseWriter, r *http.Request, store ports.AttachmentStore) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if r.FormValue("action") != ActionAttachmentURL {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("0"))
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("attachmentID")), 10, 64)
	if err != nil || id <= 0 {
		return
	}

	a, err := store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "", http.StatusInternalServerError)
		return
	}
	if a != nil {
		_, _ = w.Write([]byte(a.URL))
	}
}

// mimeEntry is one allowed upload type.
type mimeEntry struct {
	Extensions string `json:"extensions"`
	MimeType   string `json:"mime_type"`
}

func serveMimes(w http.ResponseWriter, mimes map[string]string) {
	entries := make([]mimeEntry, 0, len(mimes))
	for exts, mime := range mimes {
		entries = append(entries, mimeEntry{Extensions: exts, MimeType: mime})
	}
	slices.SortFunc(entries, func(a, b mimeEntry) int {
		return strings.Compare(a.Extensions, b.Extensions)
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
