package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/cdn-tags/pkg/cdntags"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler exposes the shared cdntags configuration over HTTP.
type Handler struct {
	tags *cdntags.Tags

	clock func() time.Time

	mu              sync.RWMutex
	configUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler around tags.
func NewHandler(tags *cdntags.Tags, opts ...HandlerOption) *Handler {
	h := &Handler{
		tags: tags,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.configUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetCDN(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.cdnSnapshot(""))
}

func (h *Handler) handlePutEnvironment(w http.ResponseWriter, r *http.Request) {
	var req environmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	env := strings.TrimSpace(req.Environment)
	if env == "" {
		writeError(w, http.StatusBadRequest, "Invalid environment", "environment must not be empty")
		return
	}

	h.tags.SetEnvironment(cdntags.Environment(env))
	h.markConfigUpdated()

	writeJSON(w, http.StatusOK, h.cdnSnapshot("Environment updated successfully"))
}

func (h *Handler) handleGetPrecompile(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := precompileResponse{Assets: []string{}}
	if m := h.tags.Manifest(); m != nil {
		resp.Assets = m.Names()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetTag(w http.ResponseWriter, r *http.Request) {
	kind, ok := cdntags.ParseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown asset kind", "kind must be javascript or stylesheet")
		return
	}
	asset, err := h.tags.Resolve(kind, r.PathValue("name"))
	if err != nil {
		writeTagError(w, err)
		return
	}

	resp := tagResponse{
		Asset:     asset.Name,
		Kind:      asset.Kind.String(),
		URL:       asset.URL,
		Tag:       string(asset.Tag),
		CDNActive: asset.CDNActive,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) cdnSnapshot(message string) cdnResponse {
	cfg := h.tags.Configuration()
	envs := make([]string, len(cfg.CDNEnvironments))
	for i, env := range cfg.CDNEnvironments {
		envs[i] = env.String()
	}
	return cdnResponse{
		Scripts:         cfg.ScriptURLs,
		Stylesheets:     cfg.StylesheetURLs,
		CDNEnvironments: envs,
		Environment:     cfg.Environment.String(),
		RaiseOnMissing:  cfg.RaiseOnMissing,
		ShouldRaise:     cfg.ShouldRaise(),
		CDNActive:       cfg.CDNActive(),
		AddToPrecompile: cfg.AddToPrecompile,
		UpdatedAt:       h.currentConfigUpdatedAt(),
		Message:         message,
	}
}

func (h *Handler) currentConfigUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.configUpdatedAt
}

func (h *Handler) markConfigUpdated() {
	h.mu.Lock()
	h.configUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type environmentRequest struct {
	Environment string `json:"environment"`
}

type cdnResponse struct {
	Scripts         map[string]string   `json:"scripts"`
	Stylesheets     map[string]string   `json:"stylesheets"`
	CDNEnvironments []string            `json:"cdnEnvironments"`
	Environment     string              `json:"environment"`
	RaiseOnMissing  cdntags.RaisePolicy `json:"raiseOnMissing"`
	ShouldRaise     bool                `json:"shouldRaise"`
	CDNActive       bool                `json:"cdnActive"`
	AddToPrecompile bool                `json:"addToPrecompile"`
	UpdatedAt       time.Time           `json:"updatedAt"`
	Message         string              `json:"message,omitempty"`
}

type precompileResponse struct {
	Assets []string `json:"assets"`
}

type tagResponse struct {
	Asset     string `json:"asset"`
	Kind      string `json:"kind"`
	URL       string `json:"url"`
	Tag       string `json:"tag"`
	CDNActive bool   `json:"cdnActive"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeTagError(w http.ResponseWriter, err error) {
	var missing *cdntags.MissingAssetError
	if errors.As(err, &missing) {
		suggestion := fmt.Sprintf("Add a %s CDN URL for %q or relax raise_on_missing", missing.Kind, missing.Asset)
		writeError(w, http.StatusUnprocessableEntity, "MissingAssetMapping", err.Error(), suggestion)
		return
	}
	writeInternalError(w, err)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
