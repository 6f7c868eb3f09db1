package credit

// Package is a purchasable credit bundle. Prices are integer cents
// so amounts survive webhook round-trips without float drift.
type Package struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credits    int64  `json:"credits"`
	PriceCents int64  `json:"price_cents"`
}

var packages = []Package{
	{ID: "starter", Name: "Starter", Credits: 10, PriceCents: 999},
	{ID: "bundle", Name: "Bundle", Credits: 50, PriceCents: 3999},
	{ID: "bulk", Name: "Bulk", Credits: 100, PriceCents: 7999},
}

// Packages returns the catalog of purchasable bundles
func Packages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

// PackageByID looks up a bundle by identifier
func PackageByID(id string) (Package, bool) {
	for _, p := range packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}

// PackageByAmount resolves a bundle from a paid amount in cents.
// Webhook callbacks carry only the amount, so the price doubles
// as the package key.
func PackageByAmount(cents int64) (Package, bool) {
	for _, p := range packages {
		if p.PriceCents == cents {
			return p, true
		}
	}
	return Package{}, false
}
