package ticker

import (
	"strings"

	"github.com/pbaptista/carteira_helper/internal/model"
)

const (
	domesticSuffix    = ".SA"
	cryptoQuoteSuffix = "-USD"
)

// known provider-side symbol corrections, applied before any suffix rule.
// Share-class letters are hyphenated on the provider side.
var exceptions = map[string]string{
	"BRKB": "BRK-B",
	"BRKA": "BRK-A",
	"BFB":  "BF-B",
	"HEIA": "HEI-A",
}

// Normalize maps an internal ticker to the external provider's symbol form.
// It is a no-op for symbols already in external form (carrying a separator),
// so normalizing twice is safe.
func Normalize(t string, class model.AssetClass) string {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" {
		return t
	}

	if hasSeparator(t) {
		return t
	}

	if fixed, ok := exceptions[t]; ok {
		return fixed
	}

	switch class {
	case model.ClassCrypto:
		return t + cryptoQuoteSuffix
	case model.ClassEquity, model.ClassReit, model.ClassEtf, model.ClassOption:
		return t + domesticSuffix
	}

	// international symbols are already in the provider's form
	return t
}

func hasSeparator(t string) bool {
	return strings.ContainsAny(t, ".-=") || strings.HasPrefix(t, "^")
}
