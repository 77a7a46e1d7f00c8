package stores

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricewatch-ie/scraper/internal/domain"
)

// htmlSearchSelectors describes the CSS shape a "SuperValu-like" search
// results page follows, so SuperValu, Lidl, Tesco and Dunnes can share a
// single parser.
type htmlSearchSelectors struct {
	row         string // one result row per match
	name        string
	priceText   string // e.g. "€2.50"
	pricePUText string // e.g. "€2.50/kg", may be absent
	imageAttr   string // CSS selector for the image, read via src
	linkAttr    string // CSS selector for the link, read via href
	skuAttr     string // attribute on the row carrying the native SKU
	offerText   string // promotional text node, may be absent
}

// htmlProductSelectors describes the meta-tag shape of a dedicated product
// page.
type htmlProductSelectors struct {
	name        string
	description string
	priceText   string
	pricePUText string
	imageAttr   string
	skuAttr     string
}

// parseHTMLSearch walks a results page with the given selectors, producing
// at most depth products (domain.DepthIndefinite = no cap). Malformed rows
// are logged and skipped rather than aborting the whole parse.
func parseHTMLSearch(body []byte, depth int, id domain.StoreID, prefix, baseURL string, sel htmlSearchSelectors, logger Logger) *domain.ProductList {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		logger.Warn("stores: could not parse search response", "component", "stores", "store", id.String(), "err", err)
		return domain.NewProductList(domain.DepthIndefinite)
	}

	var products []domain.Product
	doc.Find(sel.row).EachWithBreak(func(i int, row *goquery.Selection) bool {
		if depth != domain.DepthIndefinite && len(products) >= depth {
			return false
		}

		p, ok := parseHTMLRow(row, id, prefix, baseURL, sel)
		if !ok {
			logger.Warn("stores: skipping unparseable search row", "component", "stores", "store", id.String(), "row", i)
			return true
		}
		products = append(products, p)
		return true
	})

	return domain.NewProductListFrom(products, depth)
}

func parseHTMLRow(row *goquery.Selection, id domain.StoreID, prefix, baseURL string, sel htmlSearchSelectors) (domain.Product, bool) {
	sku, exists := row.Attr(sel.skuAttr)
	if !exists || sku == "" {
		return domain.Product{}, false
	}

	name := strings.TrimSpace(row.Find(sel.name).First().Text())
	if name == "" {
		return domain.Product{}, false
	}

	priceText := strings.TrimSpace(row.Find(sel.priceText).First().Text())
	itemPrice, err := domain.ParsePrice(priceText)
	if err != nil {
		return domain.Product{}, false
	}

	pricePU, ok := parsePricePUWithFallback(row, sel.pricePUText, itemPrice)
	_ = ok

	imageURL, _ := row.Find(sel.imageAttr).First().Attr("src")
	relURL, _ := row.Find(sel.linkAttr).First().Attr("href")

	var offers []domain.Offer
	if sel.offerText != "" {
		if text := strings.TrimSpace(row.Find(sel.offerText).First().Text()); text != "" {
			offers = append(offers, domain.ParseOffer(text, time.Time{}))
		}
	}

	return domain.Product{
		ID:           buildID(prefix, sku),
		Name:         name,
		ImageURL:     imageURL,
		URL:          resolveURL(baseURL, relURL),
		ItemPrice:    itemPrice,
		PricePerUnit: pricePU,
		Store:        id,
		Timestamp:    sampleTimestamp(),
		FullInfo:     false,
		Offers:       offers,
	}, true
}

// parsePricePUWithFallback applies the adapter contract's fallback: when a
// price-per-unit string cannot be recovered, the product carries
// {item_price, Piece} instead of a zero value.
func parsePricePUWithFallback(row *goquery.Selection, selector string, itemPrice domain.Price) (domain.PricePU, bool) {
	if selector != "" {
		text := strings.TrimSpace(row.Find(selector).First().Text())
		if pu, err := domain.ParsePricePU(text); err == nil {
			return pu, true
		}
	}
	return domain.PricePU{Price: itemPrice, Unit: domain.UnitPiece}, false
}

func resolveURL(base, rel string) string {
	if rel == "" {
		return base
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

// parseHTMLProductPage parses a dedicated product page using the
// meta-tag-table extraction strategy every HTML-strategy retailer shares.
func parseHTMLProductPage(body []byte, id domain.StoreID, prefix string, pageURL string, sel htmlProductSelectors, logger Logger) (domain.Product, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		logger.Warn("stores: could not parse product page", "component", "stores", "store", id.String(), "err", err)
		return domain.Product{}, false
	}

	sku, exists := doc.Find(sel.skuAttr).First().Attr("content")
	if !exists || sku == "" {
		return domain.Product{}, false
	}

	name := strings.TrimSpace(doc.Find(sel.name).First().AttrOr("content", ""))
	description := strings.TrimSpace(doc.Find(sel.description).First().AttrOr("content", ""))

	priceText := strings.TrimSpace(doc.Find(sel.priceText).First().AttrOr("content", ""))
	itemPrice, err := domain.ParsePrice(priceText)
	if err != nil {
		return domain.Product{}, false
	}

	var pricePU domain.PricePU
	if pu, perr := domain.ParsePricePU(strings.TrimSpace(doc.Find(sel.pricePUText).First().AttrOr("content", ""))); perr == nil {
		pricePU = pu
	} else {
		pricePU = domain.PricePU{Price: itemPrice, Unit: domain.UnitPiece}
	}

	imageURL, _ := doc.Find(sel.imageAttr).First().Attr("content")

	return domain.Product{
		ID:           buildID(prefix, sku),
		Name:         name,
		Description:  description,
		ImageURL:     imageURL,
		URL:          pageURL,
		ItemPrice:    itemPrice,
		PricePerUnit: pricePU,
		Store:        id,
		Timestamp:    sampleTimestamp(),
		FullInfo:     true,
	}, true
}
