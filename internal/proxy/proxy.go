// Package proxy forwards browser requests to the upstream API with the
// server-side API key attached.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "https://api.whop.com"

// upstreamTimeout bounds a single forwarded request.
const upstreamTimeout = 30 * time.Second

// DefaultMaxBodyBytes caps request and response bodies when
// Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 << 20

// errRequestTooLarge is returned when the inbound body exceeds the cap.
var errRequestTooLarge = errors.New("request body too large")

// Headers never copied from the inbound request. Authorization is replaced
// by the server credential.
var strippedHeaders = []string{
	"Host",
	"Connection",
	"Content-Length",
	"Cookie",
	"Authorization",
	"Keep-Alive",
	"Proxy-Connection",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Config configures a Handler.
type Config struct {
	// APIKey is the upstream credential. When empty every request fails
	// with 500.
	APIKey string

	// BaseURL is the upstream origin.
	BaseURL string

	// AllowedPaths restricts forwarding to paths equal to or below one of
	// these paths, compared segment by segment after cleaning. Empty
	// allows everything.
	AllowedPaths []string

	// MaxBodyBytes caps request and response bodies. Zero uses
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Transport is the underlying round tripper. Nil uses
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// Handler is the proxy endpoint.
type Handler struct {
	apiKey  string
	baseURL string
	allowed []string
	maxBody int64
	client  *http.Client
	logger  *slog.Logger
}

// New creates a Handler.
func New(cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	h := &Handler{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(base, "/"),
		allowed: cfg.AllowedPaths,
		maxBody: cfg.MaxBodyBytes,
		logger:  logger.With("component", "proxy"),
	}
	if cfg.APIKey != "" {
		h.client = &http.Client{
			Timeout: upstreamTimeout,
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{
					AccessToken: cfg.APIKey,
					TokenType:   "Bearer",
				}),
				Base: transport,
			},
		}
	}
	return h
}

// TargetPath builds the upstream path from the request's path query
// values. Repeated values are joined with "/". The result is cleaned, so
// "." and ".." segments are resolved, and always starts with "/". A
// trailing slash is kept.
func TargetPath(values []string) string {
	p := strings.Join(values, "/")
	if p == "" {
		return "/"
	}
	clean := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.apiKey == "" {
		writeJSONError(w, http.StatusInternalServerError, "WHOP_API_KEY not configured on server")
		return
	}

	upstreamPath := TargetPath(r.URL.Query()["path"])
	if !h.pathAllowed(upstreamPath) {
		h.logger.Warn("rejected proxy path", "path", upstreamPath)
		writeJSONError(w, http.StatusForbidden, "path not allowed")
		return
	}
	target := h.baseURL + upstreamPath

	req, err := h.buildRequest(r, target)
	if errors.Is(err, errRequestTooLarge) {
		writeJSONError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		h.badGateway(w, err)
		return
	}

	h.logger.Debug("forwarding", "method", r.Method, "target", target)
	resp, err := h.client.Do(req)
	if err != nil {
		h.badGateway(w, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBody+1))
	if err != nil {
		h.badGateway(w, err)
		return
	}
	if int64(len(body)) > h.maxBody {
		h.badGateway(w, fmt.Errorf("upstream response exceeds %d bytes", h.maxBody))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") && json.Valid(body) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
		return
	}

	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

func (h *Handler) buildRequest(r *http.Request, target string) (*http.Request, error) {
	var body io.Reader
	var raw []byte
	if hasBody(r.Method) && r.Body != nil {
		var err error
		raw, err = io.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		if int64(len(raw)) > h.maxBody {
			return nil, errRequestTooLarge
		}
		if len(raw) > 0 {
			body = bytes.NewReader(raw)
		}
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header = r.Header.Clone()
	for _, name := range strippedHeaders {
		req.Header.Del(name)
	}
	if len(raw) > 0 && req.Header.Get("Content-Type") == "" && json.Valid(raw) {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// pathAllowed reports whether p is one of the allowed paths or lies below
// one. p must already be cleaned.
func (h *Handler) pathAllowed(p string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	for _, allowed := range h.allowed {
		base := strings.TrimSuffix(path.Clean("/"+allowed), "/")
		if p == base || strings.HasPrefix(p, base+"/") {
			return true
		}
	}
	return false
}

func (h *Handler) badGateway(w http.ResponseWriter, err error) {
	h.logger.Error("proxy request failed", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "Bad gateway",
		"details": err.Error(),
	})
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
