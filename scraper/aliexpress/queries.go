// Package aliexpress crawls the AliExpress consumer electronics category:
// top-selling listings, product detail pages and buyer reviews.
package aliexpress

import (
	"ali-crawler/scraper"
)

const (
	// CategoryURL is the top-selling consumer electronics category page.
	CategoryURL = "https://www.aliexpress.com/p/calp-plus/index.html?spm=a2g0o.categorymp.allcategoriespc.5.1f1aHVKoHVKoWF&categoryTab=consumer_electronics"

	geoNigeria      = "Nigeria"
	geoUnitedStates = "United States"
	locale          = "en-us"
	userAgent       = "desktop"
	renderHTML      = "html"

	listingScrolls      = 19
	listingScrollY      = 2400
	listingScrollWaitS  = 2
	specsButtonXPath    = `//div[@data-pl="product-specs"]//button`
	listingProductsPath = "products"
)

func xpath(expr string) scraper.Field {
	return scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(expr)}}
}

func amount(expr string) scraper.Field {
	return scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(expr), scraper.AmountFromString()}}
}

// joinedSpans extracts every element matching expr as the concatenation of its spans.
func joinedSpans(expr string) scraper.Field {
	return scraper.Field{
		Fns:   []scraper.Fn{scraper.XPath(expr)},
		Items: &scraper.Field{Fns: []scraper.Fn{scraper.XPath(`.//span/text()`), scraper.Join("")}},
	}
}

// ListingSchema extracts one object per product block of the category page.
func ListingSchema() scraper.Schema {
	return scraper.Schema{
		{Name: listingProductsPath, Field: scraper.Field{
			Fns: []scraper.Fn{scraper.XPath(`//div[@data-spm="prodcutlist"]/div`)},
			Fields: scraper.Schema{
				{Name: "Title", Field: xpath(`.//h3/text()`)},
				{Name: "Price current", Field: joinedSpans(`.//div[@class="U-S0j"]`)},
				{Name: "Price original", Field: xpath(`.//div[@class="_1zEQq"]/span/text()`)},
				{Name: "Sales amount", Field: xpath(`.//span[@class="Ktbl2"]/text()`)},
				{Name: "URL", Field: scraper.Field{Fns: []scraper.Fn{
					scraper.XPathOne(`.//a/@href`),
					scraper.RegexFindAll(`^//(.*?)\?`),
				}}},
			},
		}},
	}
}

// DetailSchema extracts the fields of a product detail page.
func DetailSchema() scraper.Schema {
	return scraper.Schema{
		{Name: "Title", Field: xpath(`//h1[@data-pl="product-title"]/text()`)},
		{Name: "Price current", Field: joinedSpans(`//div[contains(@class, "product-price-current")]`)},
		{Name: "Price original", Field: xpath(`//span[contains(@class, "price--original")]/text()`)},
		{Name: "Discount", Field: xpath(`//span[contains(@class, "price--discount")]/text()`)},
		{Name: "Sold", Field: amount(`//div[@data-pl="product-reviewer"]//span[contains(text(), "sold")]/text()`)},
		{Name: "Rating", Field: amount(`//div[@data-pl="product-reviewer"]//strong/text()`)},
		{Name: "Reviews count", Field: amount(`//a[@href="#nav-review"]/text()`)},
		{Name: "Delivery", Field: xpath(`//div[contains(@class, "dynamic-shipping")]//strong/text()`)},
		{Name: "Specifications", Field: scraper.Field{
			Fns: []scraper.Fn{scraper.XPath(`//ul[contains(@class, "specification--list")]//li/div`)},
			Fields: scraper.Schema{
				{Name: "Title", Field: xpath(`.//div[contains(@class, "title")]//text()`)},
				{Name: "Description", Field: xpath(`.//div[contains(@class, "desc")]//text()`)},
			},
		}},
	}
}

// ListingQuery renders the category page, scrolling until every lazy-loaded
// product block is present.
func ListingQuery() *scraper.Query {
	return &scraper.Query{
		Source:              scraper.SourceUniversalEcommerce,
		URL:                 CategoryURL,
		GeoLocation:         geoNigeria,
		Locale:              locale,
		UserAgentType:       userAgent,
		Render:              renderHTML,
		BrowserInstructions: scraper.Repeat(scraper.Scroll(0, listingScrollY, listingScrollWaitS), listingScrolls),
		Parse:               true,
		ParsingInstructions: ListingSchema(),
	}
}

// DetailQuery renders a product page with its specification panel expanded.
// productURL is scheme-less, as extracted from the listing.
func DetailQuery(productURL string) *scraper.Query {
	return &scraper.Query{
		Source:              scraper.SourceUniversalEcommerce,
		URL:                 "http://" + productURL,
		GeoLocation:         geoNigeria,
		Locale:              locale,
		UserAgentType:       userAgent,
		Render:              renderHTML,
		BrowserInstructions: []scraper.Instruction{scraper.ClickXPath(specsButtonXPath)},
		Parse:               true,
		ParsingInstructions: DetailSchema(),
	}
}

// ReviewQuery fetches the raw review service payload without rendering.
func ReviewQuery(reviewURL string) *scraper.Query {
	return &scraper.Query{
		Source:        scraper.SourceUniversalEcommerce,
		URL:           reviewURL,
		GeoLocation:   geoUnitedStates,
		UserAgentType: userAgent,
	}
}
