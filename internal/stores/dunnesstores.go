package stores

import (
	"fmt"
	"net/url"

	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/transfer"
)

// DunnesStores scrapes dunnesstoresgrocery.com's search and product pages.
type DunnesStores struct {
	homepage string
	logger   Logger
}

func NewDunnesStores(logger Logger) *DunnesStores {
	return &DunnesStores{homepage: "https://www.dunnesstoresgrocery.com/", logger: logger}
}

func (s *DunnesStores) ID() domain.StoreID { return domain.DunnesStores }

func (s *DunnesStores) BuildSearchURL(query string) string {
	return fmt.Sprintf("%ssearch?text=%s", s.homepage, url.QueryEscape(query))
}

func (s *DunnesStores) BuildSearchRequestOptions(query string) transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var dunnesSearchSelectors = htmlSearchSelectors{
	row:         "li.product-tile",
	name:        ".product-tile__name",
	priceText:   ".product-tile__price-value",
	pricePUText: ".product-tile__unit-price",
	imageAttr:   ".product-tile__image img",
	linkAttr:    "a.product-tile__link",
	skuAttr:     "data-itemid",
	offerText:   ".product-tile__promotion",
}

func (s *DunnesStores) ParseSearchResponse(body []byte, depth int) *domain.ProductList {
	return parseHTMLSearch(body, depth, domain.DunnesStores, "DN", s.homepage, dunnesSearchSelectors, s.logger)
}

func (s *DunnesStores) BuildProductURLRequestOptions() transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var dunnesProductSelectors = htmlProductSelectors{
	name:        `meta[property="og:title"]`,
	description: `meta[property="og:description"]`,
	priceText:   `meta[property="product:price:amount"]`,
	pricePUText: `meta[name="unitPrice"]`,
	imageAttr:   `meta[property="og:image"]`,
	skuAttr:     `meta[name="itemId"]`,
}

func (s *DunnesStores) ParseProductPage(body []byte, pageURL string) (domain.Product, bool) {
	return parseHTMLProductPage(body, domain.DunnesStores, "DN", pageURL, dunnesProductSelectors, s.logger)
}
