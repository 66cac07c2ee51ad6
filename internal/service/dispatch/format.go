package dispatch

import (
	"fmt"
	"strings"

	"github.com/KNICEX/crypto-scout/internal/service/monitor"
	"github.com/KNICEX/crypto-scout/pkg/decimalx"
)

// FormatResult 单条告警的人类可读文案
func FormatResult(r monitor.Result) string {
	switch r.Class {
	case monitor.AlertNew:
		return formatNewListing(r)
	case monitor.AlertChanged:
		return formatChanged(r)
	default:
		return fmt.Sprintf("%s (%s)", r.Obs.Name, r.Obs.Symbol)
	}
}

func formatChanged(r monitor.Result) string {
	lines := make([]string, 0, len(r.Changes)+1)
	lines = append(lines, fmt.Sprintf("%s (%s):", r.Obs.Name, r.Obs.Symbol))
	for _, c := range r.Changes {
		lines = append(lines, fmt.Sprintf("%s changed: %s -> %s",
			fieldLabel(c.Field), decimalx.Comma(c.Old), decimalx.Comma(c.New)))
	}
	return strings.Join(lines, "\n")
}

func formatNewListing(r monitor.Result) string {
	return fmt.Sprintf("%s (%s)\nPrice: $%s\nMarket Cap: $%s",
		r.Obs.Name, r.Obs.Symbol, decimalx.Comma(r.Obs.Price), decimalx.Comma(r.Obs.MarketCap))
}

func fieldLabel(f monitor.Field) string {
	switch f {
	case monitor.FieldMarketCap:
		return "Market Cap"
	case monitor.FieldVolume:
		return "Volume"
	default:
		return string(f)
	}
}
