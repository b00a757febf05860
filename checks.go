package mdk

import "sort"

// RefCheck declares one referential-integrity rule: every value of FromAttr
// (scalar or list) on every FromType object must name an existing ToType
// object. Violations are warnings, not errors - the export routinely refers
// to retired products for a few revisions.
type RefCheck struct {
	FromType string
	FromAttr string
	ToType   string
}

// DefaultChecks returns the standard check registry: instrument data product
// references and data product instrument class references.
func DefaultChecks() []RefCheck {
	return []RefCheck{
		{FromType: "instrument", FromAttr: "data_product_list", ToType: "data_product"},
		{FromType: "data_product", FromAttr: "instrument_class_list", ToType: "class"},
	}
}

// runChecks runs every registered check over the finished graph. Iteration is
// sorted so warning order is stable across runs.
func (l *Loader) runChecks() {
	for _, check := range l.Checks {
		from := l.TypeAssets(check.FromType)
		to := l.TypeAssets(check.ToType)

		ids := make([]string, 0, len(from))
		for id := range from {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			refs := from[id].Strs(check.FromAttr)
			if s := from[id].Str(check.FromAttr); s != "" {
				refs = []string{s}
			}
			for _, ref := range refs {
				if _, ok := to[ref]; !ok {
					l.warnf(id, "dangling_ref: %s.%s %s references missing %s %q",
						check.FromType, id, check.FromAttr, check.ToType, ref)
				}
			}
		}
	}
}
