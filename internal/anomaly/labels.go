package anomaly

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
)

// Default keyword sets used when ingestion did not label a fragment's role.
var (
	DefaultStockKeywords    = []string{"stock", "stocks", "inventory", "inventaire", "on hand"}
	DefaultQuantityKeywords = []string{"quantity", "qty", "quantite", "qte", "order qty", "shipped qty"}
	DefaultLeadTimeKeywords = []string{"lead time", "leadtime", "delai", "delais"}
)

// Labeler decides what a tabular fragment measures.
type Labeler struct {
	stock    []string
	quantity []string
	leadTime []string
}

// NewLabeler creates a labeler from keyword lists. Keywords are matched as whole words,
// case and accent insensitive, against the fragment's metric key.
func NewLabeler(stock, quantity, leadTime []string) *Labeler {
	return &Labeler{
		stock:    normalizeAll(stock),
		quantity: normalizeAll(quantity),
		leadTime: normalizeAll(leadTime),
	}
}

// Label returns the fragment's role. An explicit ingestion role always wins; otherwise
// the metric key is matched against stock, then lead time, then quantity keywords, so
// a stock level is never also reported as a quantity.
func (l *Labeler) Label(f *model.Fragment) model.FieldRole {
	if f.Role != model.RoleNone {
		return f.Role
	}
	if f.MetricKey == "" {
		return model.RoleNone
	}

	key := normalize(f.MetricKey)
	switch {
	case matchesAny(key, l.stock):
		return model.RoleStock
	case matchesAny(key, l.leadTime):
		return model.RoleLeadTime
	case matchesAny(key, l.quantity):
		return model.RoleQuantity
	}
	return model.RoleNone
}

func matchesAny(key string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := normalize(w); strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	return out
}

// normalize folds case and accents and turns separators into single spaces, padding
// the result with spaces so that substring search matches whole words only.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}
