package domain

// Plan is a billing plan shown on the plan selection page.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Period   string   `json:"period"`
	Features []string `json:"features"`
	Popular  bool     `json:"popular,omitempty"`
}

// Plans returns the plan catalog in display order.
func Plans() []Plan {
	return []Plan{
		{
			ID:     "basic",
			Name:   "Basic Diagnostic",
			Price:  "$9.99",
			Period: "month",
			Features: []string{
				"Basic error code reading",
				"Simple diagnostics",
				"Email support",
				"5 scans per month",
			},
		},
		{
			ID:     "pro",
			Name:   "Pro Diagnostic",
			Price:  "$29.99",
			Period: "month",
			Features: []string{
				"Advanced error code reading",
				"Detailed diagnostics",
				"Priority support",
				"Unlimited scans",
				"Live data monitoring",
			},
			Popular: true,
		},
		{
			ID:     "enterprise",
			Name:   "Enterprise",
			Price:  "$99.99",
			Period: "month",
			Features: []string{
				"All Pro features",
				"Fleet management",
				"API access",
				"24/7 phone support",
				"Custom integrations",
			},
		},
	}
}
