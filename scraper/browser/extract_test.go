package browser

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ali-crawler/scraper"
)

const listingPage = `<html><body>
<div data-spm="prodcutlist">
  <div>
    <a href="//www.aliexpress.com/item/1005001.html?spm=abc"><h3>Wireless Earbuds</h3></a>
    <div class="U-S0j"><span>US $</span><span>12</span><span>.99</span></div>
    <div class="_1zEQq"><span>US $25.00</span></div>
    <span class="Ktbl2">5,000+ sold</span>
  </div>
  <div>
    <a href="//www.aliexpress.com/item/1005002.html?spm=def"><h3>Smart Watch</h3></a>
    <div class="U-S0j"><span>US $</span><span>30</span></div>
  </div>
</div>
</body></html>`

func listingSchema() scraper.Schema {
	return scraper.Schema{
		{Name: "products", Field: scraper.Field{
			Fns: []scraper.Fn{scraper.XPath(`//div[@data-spm="prodcutlist"]/div`)},
			Fields: scraper.Schema{
				{Name: "Title", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`.//h3/text()`)}}},
				{Name: "Price current", Field: scraper.Field{
					Fns:   []scraper.Fn{scraper.XPath(`.//div[@class="U-S0j"]`)},
					Items: &scraper.Field{Fns: []scraper.Fn{scraper.XPath(`.//span/text()`), scraper.Join("")}},
				}},
				{Name: "Price original", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`.//div[@class="_1zEQq"]/span/text()`)}}},
				{Name: "Sales amount", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`.//span[@class="Ktbl2"]/text()`), scraper.AmountFromString()}}},
				{Name: "URL", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`.//a/@href`), scraper.RegexFindAll(`^//(.*?)\?`)}}},
			},
		}},
	}
}

func TestExtractListing(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(listingPage))
	require.NoError(t, err)

	content, err := Extract(doc, listingSchema())
	require.NoError(t, err)

	products := content.Get("products").Array()
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, "Wireless Earbuds", first.Get("Title").String())
	assert.Equal(t, "US $12.99", first.Get("Price current.0").String())
	assert.Equal(t, "US $25.00", first.Get("Price original").String())
	assert.Equal(t, 5000.0, first.Get("Sales amount").Float())
	assert.Equal(t, "www.aliexpress.com/item/1005001.html", first.Get("URL.0").String())

	second := products[1]
	assert.Equal(t, "Smart Watch", second.Get("Title").String())
	assert.Equal(t, "null", second.Get("Price original").Raw)
	assert.Equal(t, "null", second.Get("Sales amount").Raw)
}

func TestExtractNestedSpecifications(t *testing.T) {
	page := `<html><body>
	<h1 data-pl="product-title">Earbuds Pro</h1>
	<div data-pl="product-reviewer"><strong>4.8</strong><span>1,234 sold</span></div>
	<ul class="specification--list--x">
	  <li><div><div class="title--a"><span>Brand Name</span></div><div class="desc--b"><span>ACME</span></div></div></li>
	  <li><div><div class="title--a"><span>Origin</span></div><div class="desc--b"><span>CN</span></div></div></li>
	</ul></body></html>`
	doc, err := htmlquery.Parse(strings.NewReader(page))
	require.NoError(t, err)

	schema := scraper.Schema{
		{Name: "Title", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`//h1[@data-pl="product-title"]/text()`)}}},
		{Name: "Rating", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`//div[@data-pl="product-reviewer"]//strong/text()`), scraper.AmountFromString()}}},
		{Name: "Sold", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`//div[@data-pl="product-reviewer"]//span[contains(text(), "sold")]/text()`), scraper.AmountFromString()}}},
		{Name: "Specifications", Field: scraper.Field{
			Fns: []scraper.Fn{scraper.XPath(`//ul[contains(@class, "specification--list")]//li/div`)},
			Fields: scraper.Schema{
				{Name: "Title", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`.//div[contains(@class, "title")]//text()`)}}},
				{Name: "Description", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPathOne(`.//div[contains(@class, "desc")]//text()`)}}},
			},
		}},
	}

	content, err := Extract(doc, schema)
	require.NoError(t, err)

	assert.Equal(t, "Earbuds Pro", content.Get("Title").String())
	assert.Equal(t, 4.8, content.Get("Rating").Float())
	assert.Equal(t, 1234.0, content.Get("Sold").Float())
	assert.Equal(t, int64(2), content.Get("Specifications.#").Int())
	assert.Equal(t, "Brand Name", content.Get("Specifications.0.Title").String())
	assert.Equal(t, "CN", content.Get("Specifications.1.Description").String())
}

func TestExtractRejectsBadXPath(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader("<html></html>"))
	require.NoError(t, err)

	_, err = Extract(doc, scraper.Schema{
		{Name: "x", Field: scraper.Field{Fns: []scraper.Fn{scraper.XPath(`//div[`)}}},
	})
	assert.Error(t, err)
}
