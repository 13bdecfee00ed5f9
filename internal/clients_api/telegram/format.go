package telegram

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
	"xrpl-listing-bot/internal/clients_api/listings"
	"xrpl-listing-bot/internal/xrpl"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// Telegram rejects longer texts with a permanent 400
	MaxMessageRunes = 4096

	maxNameRunes        = 100
	maxFieldRunes       = 100
	maxDescriptionRunes = 200
	maxURLLength        = 1024
)

const xrpscanAccountURL = "https://xrpscan.com/account/"

// FormatNewTokenMessage renders the HTML alert text. Listing data is escaped and capped,
// and the result always fits in one Telegram message.
func FormatNewTokenMessage(sourceTitle string, tok listings.Token) string {
	out := formatNewToken(sourceTitle, tok, true)
	if utf8.RuneCountInString(out) > MaxMessageRunes {
		out = formatNewToken(sourceTitle, tok, false)
	}
	return out
}

// formatNewToken drops the description and listing link when full is false
func formatNewToken(sourceTitle string, tok listings.Token, full bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🆕 <b>New XRPL token</b> on %s: <b>%s</b>\n", escapeCapped(sourceTitle, maxFieldRunes), escapeCapped(tok.DisplayName(), maxNameRunes))
	b.WriteString("<blockquote>")

	if tok.Currency != "" {
		fmt.Fprintf(&b, "Currency: <code>%s</code>\n", escapeCapped(tok.DisplayCurrency(), maxFieldRunes))
	}
	if tok.Issuer != "" {
		if xrpl.IsValidAddress(tok.Issuer) {
			fmt.Fprintf(&b, "Issuer: <a href=\"%s%s\">%s</a>\n", xrpscanAccountURL, tok.Issuer, xrpl.ShortAddress(tok.Issuer))
		} else {
			fmt.Fprintf(&b, "Issuer: %s\n", escapeCapped(tok.Issuer, maxFieldRunes))
		}
	}
	if tok.Currency == "" || tok.Issuer == "" {
		fmt.Fprintf(&b, "ID: <code>%s</code>\n", escapeCapped(tok.ID, maxFieldRunes))
	}
	if !tok.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Created: %s UTC\n", tok.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	if desc := strings.TrimSpace(tok.Description); full && desc != "" {
		fmt.Fprintf(&b, "%s\n", escapeCapped(desc, maxDescriptionRunes))
	}
	if full && usableURL(tok.URL) {
		fmt.Fprintf(&b, "Listing: <a href=\"%s\">link</a>", html.EscapeString(tok.URL))
	} else {
		b.WriteString("Listing: null")
	}

	b.WriteString("</blockquote>")
	return b.String()
}

func tokenKeyboard(sourceTitle string, tok listings.Token) (tgbotapi.InlineKeyboardMarkup, bool) {
	var row []tgbotapi.InlineKeyboardButton
	if usableURL(tok.URL) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("View on "+Truncate(sourceTitle, maxFieldRunes), tok.URL))
	}
	if xrpl.IsValidAddress(tok.Issuer) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("XRPScan", xrpscanAccountURL+tok.Issuer))
	}
	if len(row) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}

func usableURL(u string) bool {
	return u != "" && len(u) <= maxURLLength
}

func escapeCapped(s string, max int) string {
	return html.EscapeString(Truncate(s, max))
}

// Truncate cuts s to max runes, marking the cut with an ellipsis
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}
