package storage

import (
	"strconv"

	"ali-crawler/models"
)

var (
	ListingHeader = []string{"Title", "Price current", "Price original", "Sales amount", "URL"}

	DetailHeader = []string{
		"Title", "Price current", "Price original", "Discount", "Sold", "Rating",
		"Reviews count", "Delivery", "Specifications", "URL", "id",
	}

	ReviewHeader = []string{
		"productId", "Rating", "Date", "Feedback_translated", "Feedback",
		"Label1", "Value1", "Label2", "Value2", "Label3", "Value3",
		"Name", "Country", "Upvotes", "Downvotes",
	}
)

// ListingRows converts listings to CSV rows matching ListingHeader.
func ListingRows(listings []models.ProductListing) [][]string {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, []string{l.Title, l.PriceCurrent, l.PriceOriginal, l.SalesAmount, l.URL})
	}
	return rows
}

// DetailRows converts details to CSV rows matching DetailHeader.
func DetailRows(details []models.ProductDetail) [][]string {
	rows := make([][]string, 0, len(details))
	for _, d := range details {
		specs := ""
		if d.Specifications != nil {
			specs = *d.Specifications
		}
		rows = append(rows, []string{
			d.Title, d.PriceCurrent, d.PriceOriginal, d.Discount,
			formatNumber(d.Sold), formatNumber(d.Rating), formatNumber(d.ReviewsCount),
			d.Delivery, specs, d.URL, d.ID,
		})
	}
	return rows
}

// ReviewRows converts reviews to CSV rows matching ReviewHeader. Label pairs
// occupy fixed positional columns so arbitrary label texts never collide.
func ReviewRows(reviews []models.Review) [][]string {
	rows := make([][]string, 0, len(reviews))
	for _, r := range reviews {
		row := []string{
			r.ProductID, strconv.FormatInt(r.Rating, 10), r.Date, r.FeedbackTranslated, r.Feedback,
		}
		for i := 0; i < models.MaxReviewLabels; i++ {
			if i < len(r.Labels) {
				row = append(row, r.Labels[i].Label, r.Labels[i].Value)
			} else {
				row = append(row, "", "")
			}
		}
		row = append(row, r.Name, r.Country,
			strconv.FormatInt(r.Upvotes, 10), strconv.FormatInt(r.Downvotes, 10))
		rows = append(rows, row)
	}
	return rows
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
