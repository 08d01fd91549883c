package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stocksense/pantry/internal/inventory"
	"github.com/stocksense/pantry/internal/model"
)

// RenderVelocityTable renders reorder statuses as an aligned table,
// grouped the way the engine emits them (category, then name).
func RenderVelocityTable(statuses []model.ReorderStatus) string {
	if len(statuses) == 0 {
		return SubtleStyle.Render("No purchase history yet.")
	}

	widths := []int{28, 12, 14, 10, 12, 14}
	headers := []string{"PRODUCT", "CATEGORY", "STATUS", "BUYS", "LAST BUY", "AVG INTERVAL"}

	var sb strings.Builder
	sb.WriteString(renderHeaderRow(headers, widths))
	sb.WriteString("\n")

	for _, status := range statuses {
		cells := []string{
			truncate(status.Name, widths[0]),
			string(status.Category),
			StatusStyle(status.Status).Render(string(status.Status)),
			fmt.Sprintf("%d", status.BuyCount),
			fmt.Sprintf("%dd ago", status.DaysSinceLast),
			formatInterval(status.AvgIntervalDays),
		}
		sb.WriteString(renderRow(cells, widths))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderShoppingList renders only the actionable items with their
// predicted run-out dates.
func RenderShoppingList(statuses []model.ReorderStatus) string {
	if len(statuses) == 0 {
		return FormatSuccess("Everything looks stocked.")
	}

	var sb strings.Builder
	sb.WriteString(FormatTitle("Shopping list"))
	sb.WriteString("\n")
	for _, status := range statuses {
		line := fmt.Sprintf("%s %s", CartIcon, status.Name)
		if status.PredictedOutDate != nil {
			line += SubtleStyle.Render(fmt.Sprintf("  (out around %s)", status.PredictedOutDate.Format("Jan 2")))
		}
		sb.WriteString(StatusStyle(status.Status).Render(line))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderInventory renders the likely-on-hand estimate grouped by
// category bucket, in the estimator's fixed bucket order.
func RenderInventory(buckets map[string][]string) string {
	var sections []string
	for _, name := range inventory.Buckets() {
		items := buckets[name]
		if len(items) == 0 {
			continue
		}
		var sb strings.Builder
		sb.WriteString(BoldStyle.Render(name))
		sb.WriteString("\n")
		for _, item := range items {
			sb.WriteString(fmt.Sprintf("  %s %s\n", SuccessIcon, item))
		}
		sections = append(sections, sb.String())
	}
	if len(sections) == 0 {
		return SubtleStyle.Render("Nothing estimated on hand.")
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderReceiptsTable renders receipt headers newest first.
func RenderReceiptsTable(receipts []model.Receipt) string {
	if len(receipts) == 0 {
		return SubtleStyle.Render("No receipts ingested yet.")
	}

	widths := []int{8, 20, 12, 12, 10}
	headers := []string{"ID", "STORE", "DATE", "TOTAL", "STATUS"}

	var sb strings.Builder
	sb.WriteString(renderHeaderRow(headers, widths))
	sb.WriteString("\n")

	for _, receipt := range receipts {
		date := "-"
		if receipt.ReceiptDate != nil {
			date = receipt.ReceiptDate.Format("2006-01-02")
		}
		total := "-"
		if receipt.Total != nil {
			total = fmt.Sprintf("$%.2f", *receipt.Total)
		}
		cells := []string{
			fmt.Sprintf("%d", receipt.ID),
			truncate(receipt.StoreName, widths[1]),
			date,
			total,
			receiptStatusStyle(receipt.Status).Render(string(receipt.Status)),
		}
		sb.WriteString(renderRow(cells, widths))
		sb.WriteString("\n")
	}
	return sb.String()
}

func receiptStatusStyle(status model.ReceiptStatus) lipgloss.Style {
	switch status {
	case model.ReceiptFailed:
		return ErrorStyle
	case model.ReceiptProcessing:
		return WarningStyle
	default:
		return SuccessStyle
	}
}

func renderHeaderRow(headers []string, widths []int) string {
	var cells []string
	for i, h := range headers {
		cells = append(cells, TableHeaderStyle.Width(widths[i]).Render(h))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func renderRow(values []string, widths []int) string {
	var cells []string
	for i, v := range values {
		cells = append(cells, TableCellStyle.Width(widths[i]).Render(v))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func formatInterval(avg *float64) string {
	if avg == nil {
		return SubtleStyle.Render("-")
	}
	return fmt.Sprintf("%.1fd", *avg)
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}
