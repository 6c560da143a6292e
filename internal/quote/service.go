// Package quote prices carts against the active policy snapshot and exposes
// the result over HTTP.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/policy"
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/receipt"
)

// receiptPlaces is the precision used for printed and submitted totals.
const receiptPlaces = 2

// Snapshotter exposes the active policy snapshot.
type Snapshotter interface {
	Current() policy.Snapshot
}

// ModifierRequest is a selected modifier on a line.
type ModifierRequest struct {
	ModifierID string          `json:"modifierId" validate:"required"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
}

// ItemRequest is one cart line.
type ItemRequest struct {
	MenuItemID string            `json:"menuItemId" validate:"required"`
	Name       string            `json:"name"`
	Quantity   int               `json:"quantity" validate:"gte=1,lte=999"`
	BasePrice  decimal.Decimal   `json:"basePrice"`
	Modifiers  []ModifierRequest `json:"modifiers" validate:"omitempty,dive"`
}

// Request asks for a quote on a cart.
type Request struct {
	Items                  []ItemRequest              `json:"items" validate:"omitempty,max=200,dive"`
	OrderType              string                     `json:"orderType" validate:"required,oneof=dine_in takeout delivery phone_order"`
	PartySize              int                        `json:"partySize" validate:"gte=0,lte=500"`
	AppliedDiscountIDs     []string                   `json:"appliedDiscountIds" validate:"omitempty,max=20,dive,required"`
	AppliedGratuityIDs     []string                   `json:"appliedGratuityIds" validate:"omitempty,max=20,dive,required"`
	WaivedServiceChargeIDs []string                   `json:"waivedServiceChargeIds" validate:"omitempty,max=20,dive,required"`
	GratuityOverrides      map[string]decimal.Decimal `json:"gratuityOverrides"`
	Locale                 string                     `json:"locale"`
	Currency               string                     `json:"currency" validate:"omitempty,len=3"`

	// MergeLines folds lines with the same item, prices and modifiers into one.
	MergeLines bool `json:"mergeLines"`
}

// Result is a priced quote.
type Result struct {
	QuoteID       string             `json:"quoteId"`
	PolicyVersion string             `json:"policyVersion"`
	PolicyOrigin  policy.Origin      `json:"policyOrigin"`
	PricedAt      time.Time          `json:"pricedAt"`
	Lines         []pricing.LineItem `json:"lines"`
	Exact         pricing.Totals     `json:"exact"`
	Totals        pricing.Totals     `json:"totals"`
	Receipt       []receipt.Line     `json:"receipt"`
	Issues        []pricing.Issue    `json:"issues"`
}

// Service prices quotes.
type Service struct {
	policies  Snapshotter
	formatter *receipt.Formatter
	logger    zerolog.Logger
	now       func() time.Time
	duration  metric.Float64Histogram
}

// NewService constructs a quote service. A nil formatter renders en-US / USD.
func NewService(policies Snapshotter, formatter *receipt.Formatter, logger zerolog.Logger) *Service {
	if formatter == nil {
		formatter, _ = receipt.NewFormatter(receipt.Options{})
	}
	duration, err := otel.Meter("quote").Float64Histogram(
		"quote.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Time spent pricing a quote."),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("quote_meter_unavailable")
	}
	return &Service{
		policies:  policies,
		formatter: formatter,
		logger:    logger,
		now:       time.Now,
		duration:  duration,
	}
}

// Quote prices the request. Policy problems never fail a quote; they are
// reported as issues on the result.
func (s *Service) Quote(ctx context.Context, req Request) (res Result, err error) {
	start := s.now()
	orderType := strings.TrimSpace(req.OrderType)
	ctx, span := obs.StartSpan(ctx, "quote", "quote.price",
		attribute.String("order.type", orderType),
		attribute.Int("order.items", len(req.Items)),
	)
	defer func() {
		obs.EndSpan(span, err)
		s.record(ctx, orderType, start, err)
	}()

	if s.policies == nil {
		return Result{}, common.NewAppError("POLICIES_UNAVAILABLE", "policy provider not configured", http.StatusServiceUnavailable, nil)
	}

	lines, err := cartFromRequest(req)
	if err != nil {
		return Result{}, common.NewAppError("INVALID_CART", err.Error(), http.StatusBadRequest, err)
	}

	formatter := s.formatter
	if req.Locale != "" || req.Currency != "" {
		formatter, err = receipt.NewFormatter(receipt.Options{Locale: req.Locale, Currency: req.Currency})
		if err != nil {
			return Result{}, common.NewAppError("INVALID_LOCALE", err.Error(), http.StatusBadRequest, err)
		}
	}

	policies := s.policies.Current()
	exact := pricing.Compute(pricing.Input{
		Cart:                   lines.Items(),
		Policies:               policies.Set,
		Context:                pricing.OrderContext{OrderType: pricing.OrderType(orderType), PartySize: req.PartySize},
		AppliedDiscountIDs:     req.AppliedDiscountIDs,
		AppliedGratuityIDs:     req.AppliedGratuityIDs,
		WaivedServiceChargeIDs: req.WaivedServiceChargeIDs,
		GratuityOverrides:      req.GratuityOverrides,
	})
	rounded := exact.Round(receiptPlaces)
	if err := errors.Join(exact.Verify(), rounded.Verify()); err != nil {
		s.logger.Error().Err(err).Str("policy_version", policies.Version).Msg("quote_unreconciled")
		return Result{}, common.NewAppError("UNRECONCILED", "totals do not reconcile", http.StatusInternalServerError, err)
	}

	quoteID := uuid.NewString()
	span.SetAttributes(
		attribute.String("quote.id", quoteID),
		attribute.String("policy.version", policies.Version),
		attribute.String("policy.origin", string(policies.Origin)),
		attribute.Int("quote.issues", len(exact.Issues)),
	)
	s.reportIssues(quoteID, exact.Issues)

	return Result{
		QuoteID:       quoteID,
		PolicyVersion: policies.Version,
		PolicyOrigin:  policies.Origin,
		PricedAt:      s.now().UTC(),
		Lines:         lines.Items(),
		Exact:         exact,
		Totals:        rounded,
		Receipt:       formatter.Summary(rounded),
		Issues:        exact.Issues,
	}, nil
}

func cartFromRequest(req Request) (cart.Cart, error) {
	items := make([]pricing.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		line := pricing.LineItem{
			MenuItemID: strings.TrimSpace(item.MenuItemID),
			Name:       item.Name,
			Quantity:   item.Quantity,
			BasePrice:  item.BasePrice,
		}
		for _, mod := range item.Modifiers {
			line.Modifiers = append(line.Modifiers, pricing.ModifierSelection{
				ModifierID: strings.TrimSpace(mod.ModifierID),
				Name:       mod.Name,
				Price:      mod.Price,
			})
		}
		items = append(items, line)
	}
	if !req.MergeLines {
		return cart.New(items...)
	}
	merged, err := cart.New()
	if err != nil {
		return cart.Cart{}, err
	}
	for i, line := range items {
		if merged, err = merged.Add(line); err != nil {
			return cart.Cart{}, fmt.Errorf("line %d: %w", i, err)
		}
	}
	return merged, nil
}

func (s *Service) reportIssues(quoteID string, issues []pricing.Issue) {
	for _, issue := range issues {
		if obs.PricingIssuesTotal != nil {
			obs.PricingIssuesTotal.WithLabelValues(string(issue.Category), string(issue.Reason)).Inc()
		}
		evt := s.logger.Warn()
		if !issue.Skipped() {
			evt = s.logger.Info()
		}
		evt.Str("quote_id", quoteID).
			Str("category", string(issue.Category)).
			Str("ref", issue.Ref).
			Str("reason", string(issue.Reason)).
			Msg("pricing_issue")
	}
}

func (s *Service) record(ctx context.Context, orderType string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if common.IsClientError(err) {
			result = "rejected"
		}
	}
	if !pricing.OrderType(orderType).Valid() {
		orderType = "unknown"
	}
	elapsed := obs.DurationMillis(s.now().Sub(start))
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.WithLabelValues(orderType, result).Inc()
	}
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.WithLabelValues(orderType).Observe(elapsed)
	}
	if s.duration != nil {
		s.duration.Record(ctx, elapsed, metric.WithAttributes(
			attribute.String("order.type", orderType),
			attribute.String("result", result),
		))
	}
}
