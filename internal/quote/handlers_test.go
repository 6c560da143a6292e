package quote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/policy"
	"github.com/noah-isme/backend-pos/internal/quote"
)

func newRouter(t *testing.T, provider *policy.Provider) http.Handler {
	t.Helper()
	h := &quote.Handler{
		Service:  quote.NewService(provider, nil, zerolog.Nop()),
		Policies: provider,
		Validate: validator.New(),
		Logger:   zerolog.Nop(),
	}
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string            `json:"code"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr, env
}

func TestCreateQuoteEndpoint(t *testing.T) {
	router := newRouter(t, newProvider(t))
	body := `{
	  "orderType": "dine_in",
	  "partySize": 2,
	  "items": [{"menuItemId": "burger", "quantity": 2, "basePrice": "10.00",
	             "modifiers": [{"modifierId": "cheese", "price": "0.50"}]}]
	}`
	rr, env := do(t, router, http.MethodPost, "/api/v1/quotes", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var res struct {
		QuoteID string `json:"quoteId"`
		Totals  struct {
			GrandTotal string `json:"grandTotal"`
			Breakdown  struct {
				Taxes []struct {
					PolicyID string `json:"policyId"`
					Amount   string `json:"amount"`
				} `json:"taxes"`
				Discounts []json.RawMessage `json:"discounts"`
			} `json:"breakdown"`
		} `json:"totals"`
		Receipt []struct {
			Kind   string `json:"kind"`
			Amount string `json:"amount"`
		} `json:"receipt"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.QuoteID)
	require.Equal(t, "22.73", res.Totals.GrandTotal)
	require.Len(t, res.Totals.Breakdown.Taxes, 1)
	require.Equal(t, "tax-1", res.Totals.Breakdown.Taxes[0].PolicyID)
	require.Equal(t, "1.73", res.Totals.Breakdown.Taxes[0].Amount)
	require.NotNil(t, res.Totals.Breakdown.Discounts)
	require.Equal(t, "total", res.Receipt[len(res.Receipt)-1].Kind)
}

func TestCreateQuoteValidation(t *testing.T) {
	router := newRouter(t, newProvider(t))

	rr, env := do(t, router, http.MethodPost, "/api/v1/quotes", `{"orderType":"drive_thru","items":[{"quantity":0}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	require.GreaterOrEqual(t, len(env.Error.Details), 3)

	rr, env = do(t, router, http.MethodPost, "/api/v1/quotes", `{not json`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)

	rr, env = do(t, router, http.MethodPost, "/api/v1/quotes",
		`{"orderType":"takeout","items":[{"menuItemId":"x","quantity":1,"basePrice":"-2"}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "INVALID_CART", env.Error.Code)
}

func TestPolicyEndpoints(t *testing.T) {
	doc, err := policy.Decode([]byte(policiesJSON))
	require.NoError(t, err)
	provider := policy.NewProvider(policy.Options{
		Source:   policy.StaticSource{Err: errors.New("config api down")},
		Defaults: doc,
		Logger:   zerolog.Nop(),
	})
	router := newRouter(t, provider)

	rr, env := do(t, router, http.MethodGet, "/api/v1/policies", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		Version  string `json:"version"`
		Origin   string `json:"origin"`
		Degraded bool   `json:"degraded"`
		Policies struct {
			Taxes []json.RawMessage `json:"taxes"`
		} `json:"policies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Equal(t, doc.Version(), view.Version)
	require.Equal(t, "default", view.Origin)
	require.Len(t, view.Policies.Taxes, 2)

	rr, env = do(t, router, http.MethodPost, "/api/v1/policies/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.True(t, view.Degraded)
	require.Equal(t, "default", view.Origin)
}

func TestPolicyRefreshFromSource(t *testing.T) {
	remote := policy.Defaults(policy.DefaultsConfig{TaxRate: 10})
	provider := policy.NewProvider(policy.Options{
		Source: policy.StaticSource{Document: remote},
		Logger: zerolog.Nop(),
	})
	router := newRouter(t, provider)

	rr, env := do(t, router, http.MethodPost, "/api/v1/policies/refresh", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		Version  string `json:"version"`
		Origin   string `json:"origin"`
		Degraded bool   `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.False(t, view.Degraded)
	require.Equal(t, "remote", view.Origin)
	require.Equal(t, remote.Version(), provider.Current().Version)
	_, err := provider.Refresh(context.Background())
	require.NoError(t, err)
}
