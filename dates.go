package mdk

import (
	"time"

	"github.com/pkg/errors"
)

// DefaultMaxDate is the far-future sentinel used wherever a deployment date
// is genuinely unknown. Sorting against it pushes undated assets past every
// real deployment.
var DefaultMaxDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Source dates arrive in several ad hoc precisions. Tried in order.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ParseDate parses datestr through the accepted layouts, falling back to def
// when no layout matches. An unparsable date with a zero def is an error,
// not a warning: every caller that omits a default relies on parse success.
func ParseDate(datestr string, def time.Time) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, datestr); err == nil {
			return t, nil
		}
	}
	if !def.IsZero() {
		return def, nil
	}
	return time.Time{}, errors.Errorf("invalid date string: %q", datestr)
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
