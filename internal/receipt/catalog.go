package receipt

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	for _, entry := range []struct {
		tag          language.Tag
		key, message string
	}{
		{language.Indonesian, "Subtotal", "Subtotal"},
		{language.Indonesian, "Total", "Total Bayar"},
		{language.German, "Subtotal", "Zwischensumme"},
		{language.German, "Total", "Gesamtbetrag"},
		{language.Spanish, "Subtotal", "Subtotal"},
		{language.Spanish, "Total", "Total a pagar"},
	} {
		_ = message.SetString(entry.tag, entry.key, entry.message)
	}
}
