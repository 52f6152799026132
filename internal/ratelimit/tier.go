package ratelimit

// Tier binds a processing mode to a model and the request quota the provider
// grants for that model.
type Tier struct {
	Name        string
	Model       string
	RPM         int
	RPD         int
	CostPerPage float64
	Description string
}

// DefaultTiers mirrors the Gemini free-tier quotas for the three models the
// converter can use.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name:        "fast",
			Model:       "gemini-2.5-flash-lite",
			RPM:         15,
			RPD:         1000,
			CostPerPage: 0.0005,
			Description: "Fastest and cheapest; good for clean, text-heavy documents.",
		},
		{
			Name:        "balanced",
			Model:       "gemini-2.5-flash",
			RPM:         10,
			RPD:         250,
			CostPerPage: 0.0015,
			Description: "Balanced speed and accuracy for mixed content.",
		},
		{
			Name:        "accurate",
			Model:       "gemini-2.5-pro",
			RPM:         5,
			RPD:         100,
			CostPerPage: 0.03,
			Description: "Highest accuracy for tables, formulas and scans; slowest.",
		},
	}
}
