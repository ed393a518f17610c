package domain

// RateSetting is a named numeric constant scoped to a category
// (e.g. "GLOBAL"). Settings are read-only from the costing engine's
// perspective; an external admin surface maintains them.
type RateSetting struct {
	Key      string
	Category string
	Value    float64
}

// RateTemplate is a reusable set of per-mile rate components that can be
// assigned to trips. When a trip has no rates of its own, the totals
// recalculator adopts all four components from its linked template.
type RateTemplate struct {
	ID         string
	Name       string
	FixedCPM   float64
	WageCPM    float64
	AddOnsCPM  float64
	RollingCPM float64
}
