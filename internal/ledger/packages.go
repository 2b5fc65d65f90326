package ledger

// Package is a purchasable coin bundle. Prices are in USD cents to keep
// money integral end to end.
type Package struct {
	ID         string `json:"id"`
	Coins      int64  `json:"coins"`
	PriceCents int64  `json:"price_cents"`
}

// DefaultPackages is the catalog offered at checkout. IDs are stable; pricing
// may change between releases.
func DefaultPackages() []Package {
	return []Package{
		{ID: "starter", Coins: 100, PriceCents: 999},
		{ID: "standard", Coins: 500, PriceCents: 3999},
		{ID: "plus", Coins: 1000, PriceCents: 6999},
		{ID: "pro", Coins: 5000, PriceCents: 29999},
	}
}

// FindPackage looks up a package by id.
func FindPackage(id string) (Package, bool) {
	for _, p := range DefaultPackages() {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
