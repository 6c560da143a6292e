package quote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/policy"
)

// PolicyStore is the provider surface the HTTP layer needs.
type PolicyStore interface {
	Snapshotter
	Refresh(ctx context.Context) (policy.Snapshot, error)
}

// Handler exposes quoting and policy inspection endpoints.
type Handler struct {
	Service  *Service
	Policies PolicyStore
	Validate *validator.Validate
	Logger   zerolog.Logger
	// QuoteMiddleware wraps the quote endpoint, e.g. with rate limiting.
	QuoteMiddleware func(http.Handler) http.Handler
	// RefreshMiddleware wraps the refresh endpoint, e.g. with idempotency.
	RefreshMiddleware func(http.Handler) http.Handler
}

// Routes mounts the handler under the provided router.
func (h *Handler) Routes(r chi.Router) {
	r.Method(http.MethodPost, "/quotes", wrap(http.HandlerFunc(h.Create), h.QuoteMiddleware))
	r.Get("/policies", h.Current)
	r.Method(http.MethodPost, "/policies/refresh", wrap(http.HandlerFunc(h.Refresh), h.RefreshMiddleware))
}

func wrap(h http.Handler, mw func(http.Handler) http.Handler) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Create prices a cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				details := make([]fieldError, 0, len(verrs))
				for _, fe := range verrs {
					details = append(details, fieldError{Field: fe.Namespace(), Rule: fe.Tag()})
				}
				common.WriteError(w, common.NewAppError("VALIDATION_FAILED", "request failed validation", http.StatusUnprocessableEntity, err).WithDetails(details), "")
				return
			}
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	res, err := h.Service.Quote(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, res)
}

type policyView struct {
	Version   string          `json:"version"`
	Origin    policy.Origin   `json:"origin"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Policies  policy.Document `json:"policies"`
	Degraded  bool            `json:"degraded,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

func viewOf(snap policy.Snapshot) policyView {
	return policyView{
		Version:   snap.Version,
		Origin:    snap.Origin,
		FetchedAt: snap.FetchedAt.UTC(),
		Policies:  snap.Document,
	}
}

// Current reports the active policy snapshot.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	if h.Policies == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "POLICIES_UNAVAILABLE", "policy provider not configured", nil)
		return
	}
	common.Data(w, http.StatusOK, viewOf(h.Policies.Current()))
}

// Refresh pulls policies from the configuration API now. A failed fetch still
// answers with the snapshot that remains active.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.Policies == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "POLICIES_UNAVAILABLE", "policy provider not configured", nil)
		return
	}
	snap, err := h.Policies.Refresh(r.Context())
	view := viewOf(snap)
	if err != nil {
		h.Logger.Warn().Err(err).Str("origin", string(snap.Origin)).Msg("policy_refresh_degraded")
		view.Degraded = true
		view.Reason = err.Error()
	}
	common.Data(w, http.StatusOK, view)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if !common.IsClientError(err) {
		h.Logger.Error().Err(err).Msg("quote_failed")
	}
	common.WriteError(w, err, "failed to price quote")
}
