package listings

import "xrpl-listing-bot/internal/infra/config"

// Built-in listing sites. Any field set in config.yaml wins over the preset.
var presets = map[string]config.SourceConfig{
	"firstledger": {
		Title:         "FirstLedger",
		URL:           "https://firstledger.net/api/tokens",
		CurrencyField: "currency",
		IssuerField:   "issuer",
		NameField:     "name",
		CreatedField:  "created_at",
		LinkTemplate:  "https://firstledger.net/token/{issuer}/{currency}",
	},
	"xrplto": {
		Title:            "XRPL.to",
		URL:              "https://api.xrpl.to/api/tokens?start=0&limit=100&sortBy=dateon&sortType=desc",
		ListPath:         "tokens",
		CurrencyField:    "currency",
		IssuerField:      "issuer",
		NameField:        "name",
		DescriptionField: "user",
		CreatedField:     "dateon",
		LinkTemplate:     "https://xrpl.to/token/{issuer}-{currency}",
	},
	"xpmarket": {
		Title:         "XPMarket",
		URL:           "https://api.xpmarket.com/api/trending/tokens?limit=100",
		ListPath:      "data",
		CurrencyField: "currency",
		IssuerField:   "issuer",
		NameField:     "title",
		CreatedField:  "created_at",
		LinkTemplate:  "https://xpmarket.com/dex/{currency}-{issuer}/XRP",
	},
}

// PresetNames lists the built-in source presets
func PresetNames() []string {
	return []string{"firstledger", "xrplto", "xpmarket"}
}

// resolve merges the preset named by sc.Preset under sc
func resolve(sc config.SourceConfig) config.SourceConfig {
	p, ok := presets[sc.Preset]
	if !ok {
		if sc.Name == "" {
			sc.Name = sc.Preset
		}
		return sc
	}
	if sc.Name == "" {
		sc.Name = sc.Preset
	}
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	sc.Title = pick(sc.Title, p.Title)
	sc.URL = pick(sc.URL, p.URL)
	sc.ListPath = pick(sc.ListPath, p.ListPath)
	sc.IDField = pick(sc.IDField, p.IDField)
	sc.CurrencyField = pick(sc.CurrencyField, p.CurrencyField)
	sc.IssuerField = pick(sc.IssuerField, p.IssuerField)
	sc.NameField = pick(sc.NameField, p.NameField)
	sc.DescriptionField = pick(sc.DescriptionField, p.DescriptionField)
	sc.CreatedField = pick(sc.CreatedField, p.CreatedField)
	sc.LinkTemplate = pick(sc.LinkTemplate, p.LinkTemplate)
	return sc
}
