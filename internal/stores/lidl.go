package stores

import (
	"fmt"
	"net/url"

	"github.com/pricewatch-ie/scraper/internal/domain"
	"github.com/pricewatch-ie/scraper/internal/transfer"
)

// Lidl scrapes lidl.ie's search and product pages.
type Lidl struct {
	homepage string
	logger   Logger
}

func NewLidl(logger Logger) *Lidl {
	return &Lidl{homepage: "https://www.lidl.ie/", logger: logger}
}

func (s *Lidl) ID() domain.StoreID { return domain.Lidl }

func (s *Lidl) BuildSearchURL(query string) string {
	return fmt.Sprintf("%sq/search?q=%s", s.homepage, url.QueryEscape(query))
}

func (s *Lidl) BuildSearchRequestOptions(query string) transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var lidlSearchSelectors = htmlSearchSelectors{
	row:         "div.ret-o-card",
	name:        ".ret-o-card__title",
	priceText:   ".ret-o-card__price",
	pricePUText: ".ret-o-card__base-price",
	imageAttr:   ".ret-o-card__image img",
	linkAttr:    "a.ret-o-card__link",
	skuAttr:     "data-product-code",
	offerText:   ".ret-o-card__discount-label",
}

func (s *Lidl) ParseSearchResponse(body []byte, depth int) *domain.ProductList {
	return parseHTMLSearch(body, depth, domain.Lidl, "LD", s.homepage, lidlSearchSelectors, s.logger)
}

func (s *Lidl) BuildProductURLRequestOptions() transfer.RequestOptions {
	return transfer.RequestOptions{Method: transfer.MethodGET, Headers: defaultHeaders()}
}

var lidlProductSelectors = htmlProductSelectors{
	name:        `meta[property="og:title"]`,
	description: `meta[property="og:description"]`,
	priceText:   `meta[property="product:price:amount"]`,
	pricePUText: `meta[name="basePrice"]`,
	imageAttr:   `meta[property="og:image"]`,
	skuAttr:     `meta[name="productCode"]`,
}

func (s *Lidl) ParseProductPage(body []byte, pageURL string) (domain.Product, bool) {
	return parseHTMLProductPage(body, domain.Lidl, "LD", pageURL, lidlProductSelectors, s.logger)
}
