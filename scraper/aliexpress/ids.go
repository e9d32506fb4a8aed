package aliexpress

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const reviewEndpoint = "https://feedback.aliexpress.com/pc/searchEvaluation.do"

var productIDRegexp = regexp.MustCompile(`.*/(\d+)\.html$`)

// ProductIDFromURL returns the numeric item id of a product URL such as
// "www.aliexpress.com/item/1005006.html".
func ProductIDFromURL(productURL string) (string, error) {
	m := productIDRegexp.FindStringSubmatch(productURL)
	if m == nil {
		return "", fmt.Errorf("no product id in url %q", productURL)
	}
	return m[1], nil
}

// DetailID returns the last path segment of productURL up to its first dot.
func DetailID(productURL string) string {
	seg := productURL
	if i := strings.LastIndexByte(seg, '/'); i >= 0 {
		seg = seg[i+1:]
	}
	if i := strings.IndexByte(seg, '.'); i >= 0 {
		seg = seg[:i]
	}
	return seg
}

// ReviewURL builds the review service URL for a product.
func ReviewURL(productID string, pageSize int) string {
	// Parameter order is kept stable; url.Values would sort the keys.
	return reviewEndpoint +
		"?productId=" + url.QueryEscape(productID) +
		"&lang=en_US&country=US" +
		"&pageSize=" + strconv.Itoa(pageSize) +
		"&filter=all&sort=complex_default"
}
