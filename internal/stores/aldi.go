package stores

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/transfer"
)

// Aldi queries aldi.ie's internal JSON search API, unlike the other four
// retailers which are scraped as HTML.
type Aldi struct {
	homepage string
	apiBase  string
	logger   Logger
}

func NewAldi(logger Logger) *Aldi {
	return &Aldi{
		homepage: "https://groceries.aldi.ie/",
		apiBase:  "https://groceries.aldi.ie/api/v1/",
		logger:   logger,
	}
}

func (s *Aldi) ID() domain.StoreID { return domain.Aldi }

func (s *Aldi) BuildSearchURL(query string) string {
	return fmt.Sprintf("%sproducts/search?q=%s", s.apiBase, url.QueryEscape(query))
}

func (s *Aldi) BuildSearchRequestOptions(query string) transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: jsonHeaders()}
}

type aldiSearchResponse struct {
	Results []aldiSearchItem `json:"results"`
}

type aldiSearchItem struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	ImageURL     string `json:"image"`
	URL          string `json:"url"`
	Price        struct {
		AmountText string `json:"amount"`
	} `json:"price"`
	PricePerUnit struct {
		// The unit token lives here; the numeric value it applies to is a
		// separate field on the same item rather than embedded in this
		// string, unlike every other retailer's combined "<price><sep>
		// <unit>" text. This asymmetry is deliberate, not a bug: see
		// DESIGN.md's Aldi note.
		Unit string `json:"unit"`
	} `json:"pricePerUnit"`
	PricePerUnitAmountText string `json:"pricePerUnitAmount"`
	Promotion              struct {
		Text string `json:"text"`
	} `json:"promotion"`
}

func (s *Aldi) ParseSearchResponse(body []byte, depth int) *domain.ProductList {
	var resp aldiSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.logger.Warn("stores: could not parse search response", "component", "stores", "store", domain.Aldi.String(), "err", err)
		return domain.NewProductList(domain.DepthIndefinite)
	}

	var products []domain.Product
	for i, item := range resp.Results {
		if depth != domain.DepthIndefinite && len(products) >= depth {
			break
		}

		p, ok := s.parseSearchItem(item)
		if !ok {
			s.logger.Warn("stores: skipping unparseable search row", "component", "stores", "store", domain.Aldi.String(), "row", i)
			continue
		}
		products = append(products, p)
	}

	return domain.NewProductListFrom(products, depth)
}

func (s *Aldi) parseSearchItem(item aldiSearchItem) (domain.Product, bool) {
	if item.SKU == "" || item.Name == "" {
		return domain.Product{}, false
	}

	itemPrice, err := domain.ParsePrice(item.Price.AmountText)
	if err != nil {
		return domain.Product{}, false
	}

	pricePU := s.parsePricePerUnit(item.PricePerUnit.Unit, item.PricePerUnitAmountText, itemPrice)

	var offers []domain.Offer
	if text := strings.TrimSpace(item.Promotion.Text); text != "" {
		offers = append(offers, domain.ParseOffer(text, time.Time{}))
	}

	return domain.Product{
		ID:           buildID("AL", item.SKU),
		Name:         item.Name,
		ImageURL:     item.ImageURL,
		URL:          resolveURL(s.homepage, item.URL),
		ItemPrice:    itemPrice,
		PricePerUnit: pricePU,
		Store:        domain.Aldi,
		Timestamp:    sampleTimestamp(),
		FullInfo:     false,
		Offers:       offers,
	}, true
}

// parsePricePerUnit implements Aldi's asymmetric parse: the unit token and
// the amount it applies to arrive on two separate response fields, rather
// than one combined "<price><sep><unit>" string.
func (s *Aldi) parsePricePerUnit(unitToken, amountText string, itemPrice domain.Price) domain.PricePU {
	if unitToken == "" || amountText == "" {
		return domain.PricePU{Price: itemPrice, Unit: domain.UnitPiece}
	}

	combined := amountText + "/" + unitToken
	if pu, err := domain.ParsePricePU(combined); err == nil {
		return pu
	}
	return domain.PricePU{Price: itemPrice, Unit: domain.UnitPiece}
}

func (s *Aldi) BuildProductURLRequestOptions() transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: jsonHeaders()}
}

type aldiProductResponse struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ImageURL     string `json:"image"`
	Price        struct {
		AmountText string `json:"amount"`
	} `json:"price"`
	PricePerUnit struct {
		Unit string `json:"unit"`
	} `json:"pricePerUnit"`
	PricePerUnitAmountText string `json:"pricePerUnitAmount"`
}

func (s *Aldi) ParseProductPage(body []byte, pageURL string) (domain.Product, bool) {
	var resp aldiProductResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		s.logger.Warn("stores: could not parse product page", "component", "stores", "store", domain.Aldi.String(), "err", err)
		return domain.Product{}, false
	}
	if resp.SKU == "" {
		return domain.Product{}, false
	}

	itemPrice, err := domain.ParsePrice(resp.Price.AmountText)
	if err != nil {
		return domain.Product{}, false
	}

	pricePU := s.parsePricePerUnit(resp.PricePerUnit.Unit, resp.PricePerUnitAmountText, itemPrice)

	return domain.Product{
		ID:           buildID("AL", resp.SKU),
		Name:         resp.Name,
		Description:  resp.Description,
		ImageURL:     resp.ImageURL,
		URL:          pageURL,
		ItemPrice:    itemPrice,
		PricePerUnit: pricePU,
		Store:        domain.Aldi,
		Timestamp:    sampleTimestamp(),
		FullInfo:     true,
	}, true
}
