// Package templates holds the dashboard page components. The markup lives in
// dashboard.templ; run `templ generate` after editing it.
package templates

const defaultTitle = "Customer Segmentation Dashboard"

// panel is one dashboard card. ID is the element the SSE handlers patch.
type panel struct {
	ID      string
	Heading string
	// Summary is an optional Datastar expression shown above the table.
	Summary string
}

var panels = []panel{
	{ID: "monthly-content", Heading: "Monthly Sales Trend"},
	{ID: "products-content", Heading: "Top Products by Quantity Sold"},
	{
		ID:      "segments-content",
		Heading: "Customer Segments",
		Summary: "$segmentsData.reduce((n, s) => n + s.customers, 0) + ' customers scored'",
	},
}
