package proxy_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediagate/service/internal/config"
	"github.com/mediagate/service/internal/logging"
	"github.com/mediagate/service/internal/proxy"
	"github.com/mediagate/service/internal/response"
)

func newRouter(cfg config.ProxyConfig) http.Handler {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	h := proxy.NewHandler(cfg, nil, logging.Discard())
	r := chi.NewRouter()
	r.Get("/api/proxy", h.Relay)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	path := "/api/proxy"
	if target != "" {
		path += "?url=" + url.QueryEscape(target)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRelay_StreamsUpstreamBody(t *testing.T) {
	payload := bytes.Repeat([]byte("frame"), 4096)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/avif")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(payload)
	}))
	defer upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{}), upstream.URL+"/img.avif")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/avif", w.Header().Get("Content-Type"))
	assert.Equal(t, proxy.CacheControl, w.Header().Get("Cache-Control"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestRelay_MissingURL(t *testing.T) {
	w := get(t, newRouter(config.ProxyConfig{}), "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var env response.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Missing url parameter", env.Error)
}

func TestRelay_ForwardsUpstreamErrorStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusBadGateway} {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", status)
		}))

		w := get(t, newRouter(config.ProxyConfig{}), upstream.URL)
		upstream.Close()

		assert.Equal(t, status, w.Code)
		assert.Equal(t, "Failed to fetch resource", strings.TrimSpace(w.Body.String()))
		assert.Empty(t, w.Header().Get("Cache-Control"))
	}
}

func TestRelay_TransportFailureIsBare500(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL
	upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{}), target)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestRelay_UpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer upstream.Close()
	defer close(release)

	w := get(t, newRouter(config.ProxyConfig{Timeout: 50 * time.Millisecond}), upstream.URL)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestRelay_RejectsNonHTTPTargets(t *testing.T) {
	for _, target := range []string{"file:///etc/passwd", "ftp://example.com/a.png", "/relative/path", "example.com/a.png", "http://"} {
		w := get(t, newRouter(config.ProxyConfig{}), target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestRelay_AllowedHosts(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer upstream.Close()

	allowed := newRouter(config.ProxyConfig{AllowedHosts: []string{"127.0.0.1"}})
	assert.Equal(t, http.StatusOK, get(t, allowed, upstream.URL).Code)

	denied := newRouter(config.ProxyConfig{AllowedHosts: []string{"media.example.com"}})
	w := get(t, denied, upstream.URL)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRelay_RedirectToDisallowedHostIsNotFollowed(t *testing.T) {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("secret"))
	}))
	defer internal.Close()
	internalURL := strings.Replace(internal.URL, "127.0.0.1", "localhost", 1)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internalURL+"/latest/meta-data", http.StatusFound)
	}))
	defer upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{AllowedHosts: []string{"127.0.0.1"}}), upstream.URL)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.Bytes())
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.Equal(t, int32(0), hits.Load())
}

func TestRelay_RedirectToNonHTTPIsNotFollowed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "file:///etc/passwd", http.StatusFound)
	}))
	defer upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{}), upstream.URL)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestRelay_FollowsAllowedRedirect(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png"))
	}))
	defer final.Close()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/a.png", http.StatusMovedPermanently)
	}))
	defer upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{AllowedHosts: []string{"127.0.0.1"}}), upstream.URL)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())
}

func TestRelay_RejectsDeclaredOversizeBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write(bytes.Repeat([]byte("x"), 1000))
	}))
	defer upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{MaxBytes: 100}), upstream.URL)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Failed to fetch resource", strings.TrimSpace(w.Body.String()))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestRelay_AbortsWhenStreamExceedsLimit(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write(bytes.Repeat([]byte("x"), 1000))
	}))
	defer upstream.Close()

	h := newRouter(config.ProxyConfig{MaxBytes: 100})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		get(t, h, upstream.URL)
	})
}

func TestRelay_BodyAtLimitIsRelayed(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write(bytes.Repeat([]byte("x"), 100))
	}))
	defer upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{MaxBytes: 100}), upstream.URL)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.Body.Bytes(), 100)
	assert.Equal(t, proxy.CacheControl, w.Header().Get("Cache-Control"))
}

func TestRelay_TimeoutDoesNotCutSlowBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/webm")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		for i := 0; i < 3; i++ {
			time.Sleep(40 * time.Millisecond)
			_, _ = w.Write([]byte("chunk"))
			w.(http.Flusher).Flush()
		}
	}))
	defer upstream.Close()

	w := get(t, newRouter(config.ProxyConfig{Timeout: 50 * time.Millisecond}), upstream.URL)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "chunkchunkchunk", w.Body.String())
}
