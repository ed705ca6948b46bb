package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hlwatch/hlwatch/internal/domain"
)

// ShortenAddress renders a 0x address as "0x1234...abcd" for display.
func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// FormatPrice renders a price with magnitude-dependent precision: no
// decimals (with thousands separators) from 1000 up, two decimals from 1 up,
// four below that. Trailing zeros are trimmed.
func FormatPrice(price float64) string {
	switch {
	case price >= 1000:
		return groupThousands(strconv.FormatFloat(price, 'f', 0, 64))
	case price >= 1:
		return trimZeros(strconv.FormatFloat(price, 'f', 2, 64))
	default:
		return trimZeros(strconv.FormatFloat(price, 'f', 4, 64))
	}
}

// FormatSize renders a position size with asset-specific precision: more
// decimals for high-unit-value coins.
func FormatSize(size float64, coin string) string {
	switch coin {
	case "BTC":
		return strconv.FormatFloat(size, 'f', 4, 64)
	case "ETH":
		return strconv.FormatFloat(size, 'f', 3, 64)
	default:
		return strconv.FormatFloat(size, 'f', 2, 64)
	}
}

// FormatFill renders a fill as a notification title and body. The title
// labels the trade long or short with a direction emoji; the body carries
// size, price, and, on closing fills with realized PnL, the signed PnL.
func FormatFill(fill domain.Fill, walletLabel string) (title, body string) {
	side := "SHORT"
	emoji := "🔴"
	if fill.Side == "buy" {
		side = "LONG"
		emoji = "🟢"
	}

	action := "traded"
	switch {
	case strings.HasPrefix(fill.Direction, "Open"):
		action = "opened"
	case strings.HasPrefix(fill.Direction, "Close"):
		action = "closed"
	}

	if walletLabel == "" {
		walletLabel = ShortenAddress(fill.Wallet)
	}

	body = fmt.Sprintf("%s %s @ $%s", FormatSize(fill.Size, fill.Coin), fill.Coin, FormatPrice(fill.Price))

	if action == "closed" && fill.ClosedPnl != nil && *fill.ClosedPnl != 0 {
		pnl := *fill.ClosedPnl
		sign := ""
		if pnl >= 0 {
			sign = "+"
		}
		body += fmt.Sprintf(" | %s$%s PnL", sign, strconv.FormatFloat(pnl, 'f', 2, 64))
	}

	title = fmt.Sprintf("%s %s %s %s", emoji, walletLabel, action, side)
	return title, body
}

// groupThousands inserts comma separators into a plain integer string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// trimZeros drops trailing fractional zeros ("2.50" -> "2.5", "3.00" -> "3").
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
