package tier

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a compact tier list such as "High=0.8,Medium=0.5,Low=0".
// Entries keep their written order. The result is not validated.
func Parse(s string) ([]Tier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, invalid(-1, "no tiers defined")
	}
	parts := strings.Split(s, ",")
	out := make([]Tier, 0, len(parts))
	for i, p := range parts {
		label, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, invalid(i, fmt.Sprintf("entry %q is not label=threshold", strings.TrimSpace(p)))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, invalid(i, fmt.Sprintf("threshold %q is not a number", strings.TrimSpace(raw)))
		}
		out = append(out, Tier{Label: strings.TrimSpace(label), Threshold: v})
	}
	return out, nil
}
