package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	// Main styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F7931A")).
			Background(lipgloss.Color("#000000")).
			Padding(1, 2).
			Align(lipgloss.Center)

	MenuStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2).
			MarginTop(1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EE6FF8")).
			Bold(true)

	UnselectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	DisabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	InfoStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color("#874BFD"))

	// Data display styles
	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	PositiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	NegativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	NeutralStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// Table styles
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#7D56F4"))

	TableRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	LoadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	// Form styles
	InputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	BlurredInputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#3C3C3C")).
				Padding(0, 1)

	FieldErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	PriceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	AddressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00CED1")).
			Bold(true)
)

// FormatMoney renders an amount in dollars with two decimals.
func FormatMoney(value decimal.Decimal) string {
	return ValueStyle.Render("$" + value.StringFixed(2))
}

// FormatDelta renders a signed dollar change.
func FormatDelta(value decimal.Decimal) string {
	if value.IsNegative() {
		return NegativeStyle.Render("-$" + value.Abs().StringFixed(2))
	}
	return PositiveStyle.Render("+$" + value.StringFixed(2))
}

func FormatPercentage(value float64) string {
	if value >= 0 {
		return PositiveStyle.Render(fmt.Sprintf("+%.2f%%", value))
	}
	return NegativeStyle.Render(fmt.Sprintf("%.2f%%", value))
}

func FormatCompact(value float64) string {
	if value >= 1e12 {
		return ValueStyle.Render(fmt.Sprintf("$%.1fT", value/1e12))
	} else if value >= 1e9 {
		return ValueStyle.Render(fmt.Sprintf("$%.1fB", value/1e9))
	} else if value >= 1e6 {
		return ValueStyle.Render(fmt.Sprintf("$%.1fM", value/1e6))
	} else if value >= 1e3 {
		return ValueStyle.Render(fmt.Sprintf("$%.1fK", value/1e3))
	}
	return ValueStyle.Render(fmt.Sprintf("$%.0f", value))
}

func FormatPrice(value float64) string {
	if value < 1.0 {
		return PriceStyle.Render(fmt.Sprintf("$%.8f", value))
	} else if value < 10.0 {
		return PriceStyle.Render(fmt.Sprintf("$%.4f", value))
	}
	return PriceStyle.Render(fmt.Sprintf("$%.2f", value))
}

// ProgressBar draws percent (0-100) as a bar of width cells.
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return ""
	}
	percent = math.Max(0, math.Min(100, percent))
	filled := int(math.Round(percent / 100 * float64(width)))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if percent >= 100 {
		return PositiveStyle.Render(bar)
	}
	return PriceStyle.Render(bar)
}
