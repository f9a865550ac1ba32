package layout

import "time"

// Item is the minimal shape of a schedule entry the layout engine needs.
// Times are interpreted in their own location; callers convert them to the
// display timezone before calling into this package.
type Item struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two items share any instant. Touching items
// (one ends exactly when the other starts) do not overlap.
func Overlaps(a, b Item) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
