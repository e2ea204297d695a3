package costing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
	"github.com/saqreed/super-sto-sub000/pkg/metrics"
)

// PriceResolver is the catalog collaborator: given a part, its unit
// price and availability. The engine never mutates stock through it.
type PriceResolver interface {
	ResolvePrice(ctx context.Context, productID uuid.UUID) (*model.ProductPrice, error)
}

// Result of a costing pass. TotalCost = PartsTotal + AdditionalCosts;
// labor is recorded elsewhere and deliberately not priced in.
type Result struct {
	LineItems  []model.UsedPart
	PartsTotal float64
	TotalCost  float64
}

type Service struct {
	resolver PriceResolver
	metrics  *metrics.Metrics
}

func NewService(resolver PriceResolver, m *metrics.Metrics) *Service {
	return &Service{resolver: resolver, metrics: m}
}

// Compute validates and prices a parts list. Validation happens before
// any resolver call, and any resolver failure aborts the whole pass:
// no partially priced report ever leaves this function.
func (s *Service) Compute(ctx context.Context, parts []model.UsedPartInput, additionalCosts float64) (*Result, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.CostingDuration)
		defer timer.ObserveDuration()
	}

	if additionalCosts < 0 {
		return nil, apperror.Validation("additional costs must not be negative")
	}
	for _, part := range parts {
		if part.ProductID == uuid.Nil {
			return nil, apperror.Validation("part product id is required")
		}
		if part.Quantity < 1 {
			return nil, apperror.Validation(
				fmt.Sprintf("part %s: quantity must be a positive integer", part.ProductID))
		}
	}

	result := &Result{LineItems: make([]model.UsedPart, 0, len(parts))}
	for _, part := range parts {
		price, err := s.resolvePrice(ctx, part.ProductID)
		if err != nil {
			return nil, err
		}

		lineTotal := price.UnitPrice * float64(part.Quantity)
		result.LineItems = append(result.LineItems, model.UsedPart{
			ProductID:   part.ProductID,
			ProductName: price.Name,
			Quantity:    part.Quantity,
			UnitPrice:   price.UnitPrice,
			TotalPrice:  lineTotal,
		})
		result.PartsTotal += lineTotal
	}

	result.TotalCost = result.PartsTotal + additionalCosts
	return result, nil
}

func (s *Service) resolvePrice(ctx context.Context, productID uuid.UUID) (*model.ProductPrice, error) {
	price, err := s.resolver.ResolvePrice(ctx, productID)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PriceLookups.WithLabelValues("error").Inc()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, apperror.UpstreamTimeout("catalog price resolver", err)
		}
		if apperror.Is(err, apperror.CodeNotFound) {
			return nil, apperror.InvalidPart(productID.String())
		}
		return nil, fmt.Errorf("failed to resolve price for %s: %w", productID, err)
	}
	if !price.Available {
		if s.metrics != nil {
			s.metrics.PriceLookups.WithLabelValues("unavailable").Inc()
		}
		return nil, apperror.InvalidPart(productID.String())
	}
	if s.metrics != nil {
		s.metrics.PriceLookups.WithLabelValues("success").Inc()
	}
	return price, nil
}

// Timeout applied to resolver-bound work when the caller did not set one.
const DefaultResolveTimeout = 5 * time.Second
