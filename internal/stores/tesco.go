package stores

import (
	"fmt"
	"net/url"

	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/transfer"
)

// Tesco scrapes tesco.ie's search and product pages.
type Tesco struct {
	homepage string
	logger   Logger
}

func NewTesco(logger Logger) *Tesco {
	return &Tesco{homepage: "https://www.tesco.ie/groceries/en-IE/", logger: logger}
}

func (s *Tesco) ID() domain.StoreID { return domain.Tesco }

func (s *Tesco) BuildSearchURL(query string) string {
	return fmt.Sprintf("%ssearch?query=%s", s.homepage, url.QueryEscape(query))
}

func (s *Tesco) BuildSearchRequestOptions(query string) transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var tescoSearchSelectors = htmlSearchSelectors{
	row:         "li.product-list--list-item",
	name:        ".product-details--title",
	priceText:   ".price-control-wrapper .value",
	pricePUText: ".price-per-quantity-weight",
	imageAttr:   ".product-image img",
	linkAttr:    "a.product-image-wrapper",
	skuAttr:     "data-product-id",
	offerText:   ".offer-text",
}

func (s *Tesco) ParseSearchResponse(body []byte, depth int) *domain.ProductList {
	return parseHTMLSearch(body, depth, domain.Tesco, "TC", s.homepage, tescoSearchSelectors, s.logger)
}

func (s *Tesco) BuildProductURLRequestOptions() transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var tescoProductSelectors = htmlProductSelectors{
	name:        `meta[property="og:title"]`,
	description: `meta[property="og:description"]`,
	priceText:   `meta[property="product:price:amount"]`,
	pricePUText: `meta[name="pricePerQuantityWeight"]`,
	imageAttr:   `meta[property="og:image"]`,
	skuAttr:     `meta[name="productId"]`,
}

func (s *Tesco) ParseProductPage(body []byte, pageURL string) (domain.Product, bool) {
	return parseHTMLProductPage(body, domain.Tesco, "TC", pageURL, tescoProductSelectors, s.logger)
}
