package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stocksense/pantry/internal/model"
)

// skipKeywords marks non-product lines that e-commerce receipts mix in
// with items: charges, adjustments, and promotional phrasing.
var skipKeywords = []string{
	"subtotal", "total", "tax", "tip", "fee", "delivery", "service",
	"savings", "you saved", "original charge", "adjusted", "refund",
	"checkout", "promotions", "credit", "substituted for",
}

// HTMLLayout selects the markup anchors used to walk a retailer's receipt
// email.
type HTMLLayout string

// HTML layout constants.
const (
	// LayoutItemDiv is the div-based layout: each product sits in a
	// div.item-name with a following div.item-price.
	LayoutItemDiv HTMLLayout = "item-div"
	// LayoutProductTable is the table-based layout: one table.full-width
	// per product with the price in a sibling cell.
	LayoutProductTable HTMLLayout = "product-table"
)

// RetailerProfile tunes structural extraction per retailer. The price
// ceiling doubles as a totals detector: a very large number in the price
// position is almost always a mis-captured order total.
type RetailerProfile struct {
	Name         string
	Layout       HTMLLayout
	PriceCeiling float64
}

// DeliveryProfile matches grocery-delivery receipt emails using the
// div-based layout.
func DeliveryProfile() RetailerProfile {
	return RetailerProfile{
		Name:         "delivery",
		Layout:       LayoutItemDiv,
		PriceCeiling: 200,
	}
}

// WarehouseProfile matches bulk-warehouse receipt emails, where single
// line items legitimately run higher than grocery ones.
func WarehouseProfile() RetailerProfile {
	return RetailerProfile{
		Name:         "warehouse",
		Layout:       LayoutProductTable,
		PriceCeiling: 500,
	}
}

var (
	priceRe    = regexp.MustCompile(`\$(\d+\.?\d*)`)
	qtyTimesRe = regexp.MustCompile(`(\d+)\s*x\s*\$`)
	qtyBareRe  = regexp.MustCompile(`(\d+)\s*x`)
	sizeInfoRe = regexp.MustCompile(`\([^)]*\)$`)
)

// parseHTML extracts line items from a receipt email body using the
// profile's markup anchors. Items keep document order; duplicates by name
// are dropped (first occurrence wins).
func parseHTML(body string, profile RetailerProfile) ([]model.LineItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var raw []model.LineItem
	switch profile.Layout {
	case LayoutProductTable:
		raw = parseProductTables(doc, profile)
	default:
		raw = parseItemDivs(doc, profile)
	}

	seen := make(map[string]bool, len(raw))
	items := make([]model.LineItem, 0, len(raw))
	for _, item := range raw {
		if seen[item.Name] {
			continue
		}
		seen[item.Name] = true
		items = append(items, item)
	}
	return items, nil
}

func parseItemDivs(doc *goquery.Document, profile RetailerProfile) []model.LineItem {
	var items []model.LineItem

	doc.Find("div.item-name").Each(func(_ int, nameDiv *goquery.Selection) {
		name := directText(nameDiv)
		name = strings.TrimSpace(sizeInfoRe.ReplaceAllString(name, ""))
		if len(name) < 3 || matchesSkipKeyword(name) {
			return
		}

		quantity := 1.0
		if muted := nameDiv.Find("small.muted").First(); muted.Length() > 0 {
			mutedText := muted.Text()
			if m := qtyTimesRe.FindStringSubmatch(mutedText); m != nil {
				if q, err := strconv.Atoi(m[1]); err == nil {
					quantity = float64(q)
				}
			}
			// Weight-priced produce ("1.2 lb") counts as one unit.
		}

		price := 0.0
		priceDiv := nameDiv.NextAllFiltered("div.item-price").First()
		if priceDiv.Length() == 0 {
			priceDiv = nameDiv.Parent().Find("div.item-price").First()
		}
		// Take the last non-strikethrough total so discounted prices win
		// over the crossed-out original.
		totals := priceDiv.Find("div.total").Not(".strike")
		for i := totals.Length() - 1; i >= 0; i-- {
			if m := priceRe.FindStringSubmatch(totals.Eq(i).Text()); m != nil {
				if p, err := strconv.ParseFloat(m[1], 64); err == nil {
					price = p
					break
				}
			}
		}

		if price <= 0 || price > profile.PriceCeiling {
			return
		}

		item, err := model.NewLineItem(name, quantity, price, 0)
		if err != nil {
			return
		}
		items = append(items, item)
	})

	return items
}

func parseProductTables(doc *goquery.Document, profile RetailerProfile) []model.LineItem {
	var items []model.LineItem

	doc.Find("table.full-width").Each(func(_ int, table *goquery.Selection) {
		productCell := table.Find("td.full-width").First()
		if productCell.Length() == 0 {
			return
		}

		quantity := 1.0
		if m := qtyBareRe.FindStringSubmatch(productCell.Find("strong").First().Text()); m != nil {
			if q, err := strconv.Atoi(m[1]); err == nil {
				quantity = float64(q)
			}
		}

		name := strings.TrimSpace(productCell.Find("span").First().Text())
		if len(name) < 3 || matchesSkipKeyword(name) {
			return
		}

		price := 0.0
		table.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if cell.HasClass("full-width") {
				return true
			}
			// Discounted price takes precedence over the regular one.
			target := cell.Find("strong.discounted-price").First()
			if target.Length() == 0 {
				target = cell.Find("strong").Not("[class]").First()
			}
			if m := priceRe.FindStringSubmatch(target.Text()); m != nil {
				if p, err := strconv.ParseFloat(m[1], 64); err == nil {
					price = p
					return false
				}
			}
			return true
		})

		if price <= 0 || price > profile.PriceCeiling {
			return
		}

		item, err := model.NewLineItem(name, quantity, price, 0)
		if err != nil {
			return
		}
		items = append(items, item)
	})

	return items
}

// directText returns the name div's own text, skipping nested price and
// size markup. Falls back to the first segment of the full text.
func directText(sel *goquery.Selection) string {
	var name string
	sel.Contents().EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if goquery.NodeName(node) == "#text" {
			if text := strings.TrimSpace(node.Text()); text != "" {
				name = text
				return false
			}
			return true
		}
		tag := goquery.NodeName(node)
		if tag != "small" && tag != "br" {
			if text := strings.TrimSpace(node.Text()); text != "" && !strings.HasPrefix(text, "$") {
				name = text
				return false
			}
		}
		return true
	})

	if name == "" {
		parts := strings.Split(sel.Text(), "\n")
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				name = trimmed
				break
			}
		}
	}
	return name
}

func matchesSkipKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range skipKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
