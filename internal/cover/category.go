// Package cover implements the multi-strategy cover calculation: sample-point
// generation, the wall/tile/token collision primitives, nine selectable
// geometric strategies and the blocked-fraction to category mapping.
package cover

// Category is the discrete severity of visual obstruction. The integer
// encoding is monotonic with severity so min/max reductions are valid.
type Category int

const (
	// None means the target is effectively unobstructed.
	None Category = iota
	// Low is partial cover (e.g. a blocking creature, a low wall).
	Low
	// Medium is substantial cover.
	Medium
	// High is near-total cover.
	High
	// Full means the target cannot be seen at all. Terminal; no further
	// sub-resolution is applied.
	Full
	categoryCount
)

var categoryNames = [categoryCount]string{"none", "low", "medium", "high", "full"}

func (c Category) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the defined categories.
func (c Category) Valid() bool { return c >= None && c < categoryCount }

// ParseCategory maps a name back to a Category.
func ParseCategory(s string) (Category, bool) {
	for i, n := range categoryNames {
		if n == s {
			return Category(i), true
		}
	}
	return None, false
}

// Thresholds are the blocked-fraction cutoffs for Low/Medium/High, each in
// [0,1]. They are externally configured; the engine treats them as opaque.
type Thresholds struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// DefaultThresholds matches the usual half / three-quarters / total rule.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.5, Medium: 0.75, High: 1.0}
}

// CategoryFor maps a blocked fraction to a category: High when the fraction
// reaches the high threshold, then Medium, then Low, otherwise None.
func CategoryFor(fraction float64, t Thresholds) Category {
	switch {
	case fraction >= t.High:
		return High
	case fraction >= t.Medium:
		return Medium
	case fraction >= t.Low:
		return Low
	default:
		return None
	}
}
