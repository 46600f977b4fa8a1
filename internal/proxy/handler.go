// Package proxy relays remote media to clients under a long-lived cache policy.
package proxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediagate/service/internal/config"
	"github.com/mediagate/service/internal/metrics"
	"github.com/mediagate/service/internal/response"
)

// CacheControl is sent with every successfully relayed response.
const CacheControl = "public, max-age=31536000, immutable"

const maxRedirects = 10

var (
	errInvalidURL    = errors.New("invalid url")
	errHostForbidden = errors.New("host not allowed")
)

// Handler streams upstream responses back to the caller.
type Handler struct {
	client   *http.Client
	allowed  map[string]struct{}
	maxBytes int64
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewHandler creates a proxy Handler. An empty AllowedHosts list permits any host.
// cfg.Timeout bounds connecting and waiting for response headers; the body
// stream is bounded by the server's write timeout.
func NewHandler(cfg config.ProxyConfig, m *metrics.Metrics, logger *slog.Logger) *Handler {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = cfg.Timeout
	transport.ResponseHeaderTimeout = cfg.Timeout
	return NewHandlerWithClient(&http.Client{Transport: transport}, cfg, m, logger)
}

// NewHandlerWithClient creates a proxy Handler issuing fetches through a copy
// of client. Every redirect hop is held to the same target rules as the
// requested URL.
func NewHandlerWithClient(client *http.Client, cfg config.ProxyConfig, m *metrics.Metrics, logger *slog.Logger) *Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedHosts))
	for _, host := range cfg.AllowedHosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			allowed[host] = struct{}{}
		}
	}
	c := *client
	h := &Handler{
		client:   &c,
		allowed:  allowed,
		maxBytes: cfg.MaxBytes,
		metrics:  m,
		logger:   logger,
	}
	c.CheckRedirect = h.checkRedirect
	return h
}

// Relay godoc
//
//	@Summary		Proxy remote media
//	@Description	Fetches the given absolute http(s) URL and streams it back with the upstream content type and a one-year public cache policy.
//	@Tags			proxy
//	@Produce		octet-stream
//	@Param			url	query		string	true	"Absolute URL to fetch"
//	@Success		200	{file}		binary
//	@Failure		400	{object}	response.ErrorEnvelope
//	@Failure		500	"Transport failure (empty body)"
//	@Failure		502	"Upstream body exceeds the size limit"
//	@Router			/api/proxy [get]
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		h.metrics.ObserveProxy("rejected")
		response.BadRequest(w, "Missing url parameter", "")
		return
	}

	target, err := h.checkTarget(raw)
	if err != nil {
		h.metrics.ObserveProxy("rejected")
		if errors.Is(err, errHostForbidden) {
			response.BadRequest(w, "Invalid url parameter", "host is not allowed")
			return
		}
		response.BadRequest(w, "Invalid url parameter", "url must be an absolute http or https URL")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		h.metrics.ObserveProxy("failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, errInvalidURL) || errors.Is(err, errHostForbidden) {
			h.metrics.ObserveProxy("rejected")
		} else {
			h.metrics.ObserveProxy("failed")
		}
		h.logger.Warn("proxy fetch failed",
			"request_id", middleware.GetReqID(r.Context()),
			"host", target.Host,
			"error", err,
		)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.metrics.ObserveProxy("upstream_error")
		h.logger.Debug("proxy upstream error", "host", target.Host, "status", resp.StatusCode)
		http.Error(w, "Failed to fetch resource", resp.StatusCode)
		return
	}

	if h.maxBytes > 0 && resp.ContentLength > h.maxBytes {
		h.metrics.ObserveProxy("too_large")
		h.logger.Warn("proxy upstream too large", "host", target.Host, "content_length", resp.ContentLength)
		http.Error(w, "Failed to fetch resource", http.StatusBadGateway)
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", CacheControl)
	w.WriteHeader(resp.StatusCode)

	var body io.Reader = resp.Body
	if h.maxBytes > 0 {
		body = io.LimitReader(resp.Body, h.maxBytes)
	}
	n, err := io.Copy(w, body)
	if err != nil {
		h.metrics.ObserveProxy("aborted")
		h.logger.Warn("proxy stream aborted", "host", target.Host, "bytes", n, "error", err)
		return
	}

	// A body longer than the cap must not look complete to caches downstream.
	if h.maxBytes > 0 && n == h.maxBytes {
		var next [1]byte
		if extra, _ := io.ReadFull(resp.Body, next[:]); extra > 0 {
			h.metrics.ObserveProxy("too_large")
			h.logger.Warn("proxy stream exceeded limit", "host", target.Host, "max_bytes", h.maxBytes)
			panic(http.ErrAbortHandler)
		}
	}
	h.metrics.ObserveProxy("relayed")
}

// checkRedirect applies checkTarget to every hop.
func (h *Handler) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	_, err := h.checkTarget(req.URL.String())
	return err
}

// checkTarget accepts absolute http(s) URLs whose host is allowed.
func (h *Handler) checkTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, errInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errInvalidURL
	}
	if len(h.allowed) > 0 {
		if _, ok := h.allowed[strings.ToLower(u.Hostname())]; !ok {
			return nil, errHostForbidden
		}
	}
	return u, nil
}
