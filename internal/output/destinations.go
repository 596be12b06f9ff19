package output

import (
	"fmt"
	"strings"

	"reviewetl/internal/reports"
)

// Destinations maps the cleaned table and each report to a sink location.
type Destinations struct {
	Cleaned string
	Reports map[string]string
}

// NewDestinations places product_rating_summary at root and every other
// report in a sub-path named after it, e.g. root/daily_review_trends/.
// Non-empty overrides win.
func NewDestinations(cleaned, root string, overrides map[string]string) Destinations {
	d := Destinations{Cleaned: cleaned, Reports: make(map[string]string, len(reports.Names))}
	for _, name := range reports.Names {
		if o := overrides[name]; o != "" {
			d.Reports[name] = o
			continue
		}
		if root == "" {
			continue
		}
		if name == reports.ProductRatingSummary {
			d.Reports[name] = root
			continue
		}
		d.Reports[name] = strings.TrimRight(root, "/") + "/" + name + "/"
	}
	return d
}

// For returns the destination of the named report.
func (d Destinations) For(name string) (string, error) {
	dest, ok := d.Reports[name]
	if !ok || dest == "" {
		return "", fmt.Errorf("no destination for report %q", name)
	}
	return dest, nil
}
