package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/pricewatch-ie/scraper/internal/domain"
)

func setupGateway(t *testing.T) *Gateway {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	gw, err := Connect(ctx, uri, "pricewatch_test")
	require.NoError(t, err)
	return gw
}

func TestGateway_PutProducts_GetProducts_RoundTrip(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	products := []domain.Product{
		{
			ID:           "SV1",
			Name:         "Milk",
			ItemPrice:    domain.Price{Currency: domain.EUR, Value: 150},
			PricePerUnit: domain.PricePU{Unit: domain.UnitLitres, Price: domain.Price{Currency: domain.EUR, Value: 150}},
			Store:        domain.SuperValu,
			Timestamp:    time.Now().UTC().Truncate(time.Second),
		},
		{
			ID:           "LD1",
			Name:         "Bread",
			ItemPrice:    domain.Price{Currency: domain.EUR, Value: 120},
			PricePerUnit: domain.PricePU{Unit: domain.UnitPiece, Price: domain.Price{Currency: domain.EUR, Value: 120}},
			Store:        domain.Lidl,
			Timestamp:    time.Now().UTC().Truncate(time.Second),
		},
	}

	require.NoError(t, gw.PutProducts(ctx, products))

	got, err := gw.GetProducts(ctx, []string{"SV1", "LD1", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Milk", got["SV1"].Name)
	assert.Equal(t, domain.Lidl, got["LD1"].Store)
	assert.Equal(t, uint64(150), got["SV1"].ItemPrice.Value)
}

func TestGateway_PutProducts_ReplacesExisting(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	original := domain.Product{ID: "SV1", Name: "Milk", Store: domain.SuperValu}
	require.NoError(t, gw.PutProducts(ctx, []domain.Product{original}))

	updated := domain.Product{ID: "SV1", Name: "Milk 2L", Store: domain.SuperValu}
	require.NoError(t, gw.PutProducts(ctx, []domain.Product{updated}))

	got, err := gw.GetProducts(ctx, []string{"SV1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Milk 2L", got["SV1"].Name)
}

func TestGateway_GetQueryTemplate_NotFound(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	_, err := gw.GetQueryTemplate(ctx, "nonexistent query")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGateway_PutQueryTemplate_GetQueryTemplate_RoundTrip(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	qt := domain.QueryTemplate{
		QueryString: "milk",
		Stores:      domain.NewStoreSelection(domain.SuperValu, domain.Lidl),
		Results: map[string]domain.QueryResultInfo{
			"SV1": {Relevance: 10},
			"LD1": {Relevance: 5},
		},
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Depth:     20,
	}

	require.NoError(t, gw.PutQueryTemplate(ctx, qt))

	got, err := gw.GetQueryTemplate(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, "milk", got.QueryString)
	assert.True(t, got.Stores.Has(domain.SuperValu))
	assert.True(t, got.Stores.Has(domain.Lidl))
	assert.False(t, got.Stores.Has(domain.Tesco))
	assert.Equal(t, 20, got.Depth)
	require.Contains(t, got.Results, "SV1")
	assert.Equal(t, 10, got.Results["SV1"].Relevance)
}

func TestGateway_GetProducts_EmptyInput(t *testing.T) {
	gw := setupGateway(t)
	got, err := gw.GetProducts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
