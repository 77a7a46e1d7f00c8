// Package docstore is the bulk get/put gateway to the document store that
// holds scraped products and cached query records.
package docstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pricewatch-ie/scraper/internal/domain"
)

// Error kinds the resolver distinguishes between.
var (
	ErrNotFound         = errors.New("docstore: not found")
	ErrConnectionFailed = errors.New("docstore: connection failed")
	ErrOther            = errors.New("docstore: other error")
)

const (
	productsCollection = "products"
	queriesCollection  = "queries"
)

// Gateway is a typed bulk get/put front-end over a MongoDB database.
type Gateway struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri and returns a Gateway bound to dbName. It pings the
// server once so connection failures surface immediately rather than on
// first use.
func Connect(ctx context.Context, uri, dbName string) (*Gateway, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errWrap(ErrConnectionFailed, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, errWrap(ErrConnectionFailed, err)
	}

	return &Gateway{client: client, db: client.Database(dbName)}, nil
}

func errWrap(kind, err error) error {
	return errors.Join(kind, err)
}

// Close disconnects the underlying MongoDB client.
func (g *Gateway) Close(ctx context.Context) error {
	return g.client.Disconnect(ctx)
}

// GetProducts bulk-loads products by id. Missing ids are simply absent
// from the result map; a transport failure returns ErrConnectionFailed.
func (g *Gateway) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	cur, err := g.db.Collection(productsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errWrap(ErrConnectionFailed, err)
	}
	defer cur.Close(ctx)

	out := make(map[string]domain.Product, len(ids))
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			continue
		}
		p, id, ok := decodeProduct(raw)
		if ok {
			out[id] = p
		}
	}
	if err := cur.Err(); err != nil {
		return out, errWrap(ErrOther, err)
	}
	return out, nil
}

// PutProducts replaces the given products wholesale: delete-by-id then
// insert-all, matching the original store's write semantics.
func (g *Gateway) PutProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	docs := make([]any, len(products))
	for i, p := range products {
		ids[i] = p.ID
		docs[i] = encodeProduct(p)
	}

	coll := g.db.Collection(productsCollection)
	if _, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return errWrap(ErrOther, err)
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return errWrap(ErrOther, err)
	}
	return nil
}

// GetQueryTemplate loads the cached template for queryString. ErrNotFound
// is returned when no record exists; other failures are wrapped with
// ErrConnectionFailed.
func (g *Gateway) GetQueryTemplate(ctx context.Context, queryString string) (domain.QueryTemplate, error) {
	var raw bson.M
	err := g.db.Collection(queriesCollection).FindOne(ctx, bson.M{"_id": queryString}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.QueryTemplate{}, ErrNotFound
	}
	if err != nil {
		return domain.QueryTemplate{}, errWrap(ErrConnectionFailed, err)
	}
	return decodeQueryTemplate(raw), nil
}

// PutQueryTemplate replaces any prior record for qt.QueryString.
func (g *Gateway) PutQueryTemplate(ctx context.Context, qt domain.QueryTemplate) error {
	coll := g.db.Collection(queriesCollection)
	if _, err := coll.DeleteOne(ctx, bson.M{"_id": qt.QueryString}); err != nil {
		return errWrap(ErrOther, err)
	}
	if _, err := coll.InsertOne(ctx, encodeQueryTemplate(qt)); err != nil {
		return errWrap(ErrOther, err)
	}
	return nil
}

func encodeProduct(p domain.Product) bson.M {
	return bson.M{
		"_id":            p.ID,
		"name":           p.Name,
		"description":    p.Description,
		"image_url":      p.ImageURL,
		"url":            p.URL,
		"item_price":     bson.A{int(p.ItemPrice.Currency), p.ItemPrice.Value},
		"price_per_unit": bson.A{int(p.PricePerUnit.Unit), bson.A{int(p.PricePerUnit.Price.Currency), p.PricePerUnit.Price.Value}},
		"store":          int(p.Store),
		"timestamp":      p.Timestamp,
		"full_info":      p.FullInfo,
	}
}

func decodeProduct(raw bson.M) (domain.Product, string, bool) {
	id, _ := raw["_id"].(string)
	if id == "" {
		return domain.Product{}, "", false
	}

	p := domain.Product{
		ID:          id,
		Name:        stringField(raw, "name"),
		Description: stringField(raw, "description"),
		ImageURL:    stringField(raw, "image_url"),
		URL:         stringField(raw, "url"),
		FullInfo:    boolField(raw, "full_info"),
	}

	if ts, ok := raw["timestamp"].(time.Time); ok {
		p.Timestamp = ts
	}
	if store, ok := numField(raw, "store"); ok {
		p.Store = domain.StoreID(store)
	}
	if arr, ok := raw["item_price"].(bson.A); ok && len(arr) == 2 {
		p.ItemPrice = decodePrice(arr)
	}
	if arr, ok := raw["price_per_unit"].(bson.A); ok && len(arr) == 2 {
		unit, _ := toInt(arr[0])
		if priceArr, ok := arr[1].(bson.A); ok && len(priceArr) == 2 {
			p.PricePerUnit = domain.PricePU{Unit: domain.Unit(unit), Price: decodePrice(priceArr)}
		}
	}

	return p, id, true
}

func decodePrice(arr bson.A) domain.Price {
	cur, _ := toInt(arr[0])
	val, _ := toInt(arr[1])
	return domain.Price{Currency: domain.Currency(cur), Value: uint64(val)}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func stringField(raw bson.M, key string) string {
	s, _ := raw[key].(string)
	return s
}

func boolField(raw bson.M, key string) bool {
	b, _ := raw[key].(bool)
	return b
}

func numField(raw bson.M, key string) (int64, bool) {
	return toInt(raw[key])
}

func encodeQueryTemplate(qt domain.QueryTemplate) bson.M {
	results := bson.M{}
	for id, info := range qt.Results {
		results[id] = bson.M{"relevance": info.Relevance}
	}
	return bson.M{
		"_id":          qt.QueryString,
		"query_string": qt.QueryString,
		"stores":       int64(qt.Stores),
		"results":      results,
		"timestamp":    qt.Timestamp,
		"depth":        qt.Depth,
	}
}

func decodeQueryTemplate(raw bson.M) domain.QueryTemplate {
	qt := domain.QueryTemplate{
		QueryString: stringField(raw, "query_string"),
		Results:     map[string]domain.QueryResultInfo{},
	}

	if ts, ok := raw["timestamp"].(time.Time); ok {
		qt.Timestamp = ts
	}
	if depth, ok := numField(raw, "depth"); ok {
		qt.Depth = int(depth)
	}
	if n, ok := numField(raw, "stores"); ok {
		qt.Stores = domain.StoreSelection(n)
	}
	if results, ok := raw["results"].(bson.M); ok {
		for id, v := range results {
			if m, ok := v.(bson.M); ok {
				if rel, ok := numField(m, "relevance"); ok {
					qt.Results[id] = domain.QueryResultInfo{Relevance: int(rel)}
				}
			}
		}
	}

	return qt
}
