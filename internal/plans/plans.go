package plans

// Unlimited is the sentinel for limits that are not enforced
const Unlimited = -1

// AddOn identifies an optional paid capability
type AddOn string

const (
	AddOnDeemix        AddOn = "deemix"
	AddOnDeezerPremium AddOn = "deezer_premium"
)

// AddOns lists every known add-on in a stable order. Price decomposition
// walks this slice, so the order must not change between releases.
var AddOns = []AddOn{AddOnDeemix, AddOnDeezerPremium}

// Tier is one subscription level with its benefit bundle. MinPrice is an
// inclusive lower bound; a tier covers prices up to the next tier's MinPrice.
type Tier struct {
	Name     string
	MinPrice float64

	// Limits (-1 = unlimited)
	DownloadsPerDay          int
	PackRequestsPerWeek      int
	PlaylistDownloadsPerWeek int

	// Capabilities
	PrioritySupport bool
	ExclusiveGenres bool
	DirectDownload  bool

	// Tier-discounted add-on prices
	AddOnPrices map[AddOn]float64
}

// Catalog is the single source of truth for tier thresholds and benefits.
// It is built once at startup and injected into every consumer; no call
// site carries its own threshold literals.
type Catalog struct {
	tiers []Tier // ascending by MinPrice, tiers[0] is the free tier
}

// NewCatalog builds a catalog from tiers sorted ascending by MinPrice.
// The first tier must have MinPrice 0 (the non-subscriber bundle).
func NewCatalog(tiers []Tier) *Catalog {
	if len(tiers) == 0 || tiers[0].MinPrice != 0 {
		panic("plans: catalog requires a zero-price base tier")
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinPrice <= tiers[i-1].MinPrice {
			panic("plans: catalog tiers must be ascending by MinPrice")
		}
	}
	return &Catalog{tiers: tiers}
}

// Default returns the production tier table.
func Default() *Catalog {
	return NewCatalog([]Tier{
		{
			Name:                     "FREE",
			MinPrice:                 0,
			DownloadsPerDay:          5,
			PackRequestsPerWeek:      0,
			PlaylistDownloadsPerWeek: 0,
			AddOnPrices: map[AddOn]float64{
				AddOnDeemix:        14.99,
				AddOnDeezerPremium: 21.90,
			},
		},
		{
			Name:                     "BASIC",
			MinPrice:                 19.90,
			DownloadsPerDay:          25,
			PackRequestsPerWeek:      1,
			PlaylistDownloadsPerWeek: 3,
			DirectDownload:           true,
			AddOnPrices: map[AddOn]float64{
				AddOnDeemix:        11.99,
				AddOnDeezerPremium: 17.90,
			},
		},
		{
			Name:                     "STANDARD",
			MinPrice:                 38.00,
			DownloadsPerDay:          50,
			PackRequestsPerWeek:      3,
			PlaylistDownloadsPerWeek: 7,
			DirectDownload:           true,
			ExclusiveGenres:          true,
			AddOnPrices: map[AddOn]float64{
				AddOnDeemix:        9.74,
				AddOnDeezerPremium: 14.90,
			},
		},
		{
			Name:                     "COMPLETE",
			MinPrice:                 57.00,
			DownloadsPerDay:          Unlimited,
			PackRequestsPerWeek:      7,
			PlaylistDownloadsPerWeek: Unlimited,
			DirectDownload:           true,
			ExclusiveGenres:          true,
			PrioritySupport:          true,
			AddOnPrices: map[AddOn]float64{
				AddOnDeemix:        7.49,
				AddOnDeezerPremium: 11.90,
			},
		},
	})
}

// TierFor returns the highest tier whose MinPrice is at or below price.
// A price sitting exactly on a threshold belongs to the higher tier.
// Negative prices resolve to the free tier.
func (c *Catalog) TierFor(price float64) Tier {
	selected := c.tiers[0]
	for _, t := range c.tiers[1:] {
		if price >= t.MinPrice {
			selected = t
		}
	}
	return selected
}

// Top returns the highest tier (the admin override bundle)
func (c *Catalog) Top() Tier {
	return c.tiers[len(c.tiers)-1]
}

// Free returns the non-subscriber tier
func (c *Catalog) Free() Tier {
	return c.tiers[0]
}

// Tiers returns the full table, ascending by MinPrice
func (c *Catalog) Tiers() []Tier {
	return c.tiers
}

// AddOnPrice returns the discounted price of an add-on at a tier.
// Unknown add-ons cost 0 so a stale flag can never corrupt a total.
func (t Tier) AddOnPrice(a AddOn) float64 {
	if t.AddOnPrices == nil {
		return 0
	}
	return t.AddOnPrices[a]
}
