package listings

// Token listing types shared by all sources
// A Source is one external website publishing newly created XRPL tokens

import (
	"context"
	"strings"
	"time"
	"xrpl-listing-bot/internal/xrpl"
)

// Token is one entry of a source's current listing
type Token struct {
	Source      string    `json:"source"`
	ID          string    `json:"id"`
	Currency    string    `json:"currency,omitempty"`
	Issuer      string    `json:"issuer,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// DisplayCurrency is the human readable currency code
func (t Token) DisplayCurrency() string {
	return xrpl.DecodeCurrency(t.Currency)
}

// DisplayName prefers the listing name, then the decoded currency, then the ID
func (t Token) DisplayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	if t.Currency != "" {
		return t.DisplayCurrency()
	}
	return t.ID
}

type Source interface {
	// Name is the stable identifier used as the dedup namespace
	Name() string
	// Title is shown in notifications
	Title() string
	Fetch(ctx context.Context) ([]Token, error)
}
