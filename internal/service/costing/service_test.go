package costing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saqreed/super-sto-sub000/internal/model"
	"github.com/saqreed/super-sto-sub000/pkg/apperror"
)

// fakeResolver serves fixed prices and counts lookups.
type fakeResolver struct {
	mu     sync.Mutex
	prices map[uuid.UUID]*model.ProductPrice
	calls  int
	err    error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{prices: make(map[uuid.UUID]*model.ProductPrice)}
}

func (r *fakeResolver) add(name string, unitPrice float64) uuid.UUID {
	id := uuid.New()
	r.prices[id] = &model.ProductPrice{ProductID: id, Name: name, UnitPrice: unitPrice, Available: true}
	return id
}

func (r *fakeResolver) ResolvePrice(ctx context.Context, productID uuid.UUID) (*model.ProductPrice, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if price, ok := r.prices[productID]; ok {
		return price, nil
	}
	return nil, apperror.NotFound("product")
}

func TestCompute_TotalsFromResolvedPrices(t *testing.T) {
	resolver := newFakeResolver()
	padID := resolver.add("Brake pad", 500)
	svc := NewService(resolver, nil)

	result, err := svc.Compute(context.Background(),
		[]model.UsedPartInput{{ProductID: padID, Quantity: 2}}, 150)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, result.PartsTotal)
	assert.Equal(t, 1150.0, result.TotalCost)
	require.Len(t, result.LineItems, 1)
	line := result.LineItems[0]
	assert.Equal(t, "Brake pad", line.ProductName)
	assert.Equal(t, 500.0, line.UnitPrice)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 1000.0, line.TotalPrice)
}

func TestCompute_EmptyPartsList(t *testing.T) {
	svc := NewService(newFakeResolver(), nil)

	result, err := svc.Compute(context.Background(), nil, 250)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.PartsTotal)
	assert.Equal(t, 250.0, result.TotalCost)
	assert.Empty(t, result.LineItems)
}

func TestCompute_OrderIndependent(t *testing.T) {
	resolver := newFakeResolver()
	a := resolver.add("Filter", 200)
	b := resolver.add("Oil", 350)
	c := resolver.add("Gasket", 75.5)
	svc := NewService(resolver, nil)

	forward, err := svc.Compute(context.Background(), []model.UsedPartInput{
		{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 3}, {ProductID: c, Quantity: 2},
	}, 100)
	require.NoError(t, err)

	reversed, err := svc.Compute(context.Background(), []model.UsedPartInput{
		{ProductID: c, Quantity: 2}, {ProductID: b, Quantity: 3}, {ProductID: a, Quantity: 1},
	}, 100)
	require.NoError(t, err)

	assert.Equal(t, forward.TotalCost, reversed.TotalCost)
	assert.Equal(t, forward.PartsTotal, reversed.PartsTotal)
}

// Input validation runs before any resolver round trip.
func TestCompute_ValidatesBeforeResolving(t *testing.T) {
	resolver := newFakeResolver()
	padID := resolver.add("Brake pad", 500)
	svc := NewService(resolver, nil)

	cases := []struct {
		name       string
		parts      []model.UsedPartInput
		additional float64
	}{
		{"zero quantity", []model.UsedPartInput{{ProductID: padID, Quantity: 0}}, 0},
		{"negative quantity", []model.UsedPartInput{{ProductID: padID, Quantity: -3}}, 0},
		{"nil product id", []model.UsedPartInput{{ProductID: uuid.Nil, Quantity: 1}}, 0},
		{"negative additional costs", []model.UsedPartInput{{ProductID: padID, Quantity: 1}}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Compute(context.Background(), tc.parts, tc.additional)
			assert.True(t, apperror.Is(err, apperror.CodeValidation))
		})
	}
	assert.Equal(t, 0, resolver.calls, "validation failures must not hit the resolver")
}

func TestCompute_UnknownPart(t *testing.T) {
	svc := NewService(newFakeResolver(), nil)

	_, err := svc.Compute(context.Background(),
		[]model.UsedPartInput{{ProductID: uuid.New(), Quantity: 1}}, 0)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidPart))
}

func TestCompute_UnavailablePart(t *testing.T) {
	resolver := newFakeResolver()
	id := resolver.add("Discontinued pump", 900)
	resolver.prices[id].Available = false
	svc := NewService(resolver, nil)

	_, err := svc.Compute(context.Background(),
		[]model.UsedPartInput{{ProductID: id, Quantity: 1}}, 0)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidPart))
}

func TestCompute_ResolverTimeout(t *testing.T) {
	resolver := newFakeResolver()
	resolver.err = context.DeadlineExceeded
	svc := NewService(resolver, nil)

	_, err := svc.Compute(context.Background(),
		[]model.UsedPartInput{{ProductID: uuid.New(), Quantity: 1}}, 0)
	require.True(t, apperror.Is(err, apperror.CodeUpstreamTimeout))
	assert.True(t, apperror.As(err).Retryable())
}

// A failed lookup mid-list aborts the pass: no partial result.
func TestCompute_AllOrNothing(t *testing.T) {
	resolver := newFakeResolver()
	known := resolver.add("Filter", 200)
	svc := NewService(resolver, nil)

	result, err := svc.Compute(context.Background(), []model.UsedPartInput{
		{ProductID: known, Quantity: 1},
		{ProductID: uuid.New(), Quantity: 1},
	}, 0)
	assert.Nil(t, result)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidPart))
}

// catalogStub backs the caching resolver and counts catalog hits.
type catalogStub struct {
	price *model.ProductPrice
	calls int
}

func (c *catalogStub) GetProductPrice(ctx context.Context, productID uuid.UUID) (*model.ProductPrice, error) {
	c.calls++
	if c.price != nil && c.price.ProductID == productID {
		return c.price, nil
	}
	return nil, apperror.NotFound("product")
}

func (c *catalogStub) GetService(ctx context.Context, id uuid.UUID) (*model.ServiceRef, error) {
	return nil, apperror.NotFound("service")
}

func (c *catalogStub) GetServiceStation(ctx context.Context, id uuid.UUID) (*model.ServiceStationRef, error) {
	return nil, apperror.NotFound("service station")
}

func (c *catalogStub) GetMaster(ctx context.Context, id uuid.UUID) (*model.MasterRef, error) {
	return nil, apperror.NotFound("master")
}

func TestCachingResolver(t *testing.T) {
	id := uuid.New()
	catalog := &catalogStub{price: &model.ProductPrice{ProductID: id, Name: "Oil", UnitPrice: 350, Available: true}}
	resolver := NewCachingResolver(catalog, time.Minute, nil)

	for i := 0; i < 3; i++ {
		price, err := resolver.ResolvePrice(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, 350.0, price.UnitPrice)
	}
	assert.Equal(t, 1, catalog.calls, "repeat lookups should be served from cache")

	resolver.Invalidate(id)
	_, err := resolver.ResolvePrice(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.calls)
}

func TestCachingResolver_DoesNotCacheMisses(t *testing.T) {
	catalog := &catalogStub{}
	resolver := NewCachingResolver(catalog, time.Minute, nil)
	id := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := resolver.ResolvePrice(context.Background(), id)
		assert.True(t, apperror.Is(err, apperror.CodeNotFound))
	}
	assert.Equal(t, 2, catalog.calls)
}
