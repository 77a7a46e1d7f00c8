package stores

import (
	"fmt"
	"net/url"

	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/transfer"
)

// SuperValu scrapes shop.supervalu.ie's search and product pages.
type SuperValu struct {
	homepage string
	logger   Logger
}

// NewSuperValu builds the SuperValu adapter.
func NewSuperValu(logger Logger) *SuperValu {
	return &SuperValu{homepage: "https://shop.supervalu.ie/sm/delivery/rsid/5550/", logger: logger}
}

func (s *SuperValu) ID() domain.StoreID { return domain.SuperValu }

func (s *SuperValu) BuildSearchURL(query string) string {
	return fmt.Sprintf("%ssearch?q=%s", s.homepage, url.QueryEscape(query))
}

func (s *SuperValu) BuildSearchRequestOptions(query string) transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var superValuSearchSelectors = htmlSearchSelectors{
	row:         "li.product",
	name:        ".product-tile__name",
	priceText:   ".product-tile__price",
	pricePUText: ".product-tile__price-per-unit",
	imageAttr:   ".product-tile__image img",
	linkAttr:    ".product-tile__link",
	skuAttr:     "data-product-id",
	offerText:   ".product-tile__promo",
}

func (s *SuperValu) ParseSearchResponse(body []byte, depth int) *domain.ProductList {
	return parseHTMLSearch(body, depth, domain.SuperValu, "SV", s.homepage, superValuSearchSelectors, s.logger)
}

func (s *SuperValu) BuildProductURLRequestOptions() transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var superValuProductSelectors = htmlProductSelectors{
	name:        `meta[property="og:title"]`,
	description: `meta[property="og:description"]`,
	priceText:   `meta[property="product:price:amount"]`,
	pricePUText: `meta[name="price-per-unit"]`,
	imageAttr:   `meta[property="og:image"]`,
	skuAttr:     `meta[property="product:retailer_item_id"]`,
}

func (s *SuperValu) ParseProductPage(body []byte, pageURL string) (domain.Product, bool) {
	return parseHTMLProductPage(body, domain.SuperValu, "SV", pageURL, superValuProductSelectors, s.logger)
}
