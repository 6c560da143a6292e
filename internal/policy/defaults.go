package policy

import "strings"

// DefaultsConfig describes the built-in policy set used when neither the
// configuration API nor the cache can supply one.
type DefaultsConfig struct {
	TaxName string
	TaxRate float64
}

// Defaults returns a document holding at most one always-on percentage tax.
func Defaults(cfg DefaultsConfig) Document {
	if cfg.TaxRate <= 0 {
		return Document{}
	}
	name := strings.TrimSpace(cfg.TaxName)
	if name == "" {
		name = "Sales Tax"
	}
	rate := Number(cfg.TaxRate)
	return Document{
		Taxes: []Tax{{
			ID:     "default-tax",
			Name:   name,
			Kind:   "percentage",
			Rate:   &rate,
			Active: true,
		}},
	}
}
