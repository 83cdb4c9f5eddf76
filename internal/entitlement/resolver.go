package entitlement

import (
	"github.com/beatcrate/backend/internal/models"
	"github.com/beatcrate/backend/internal/plans"
)

// Benefits is the resolved bundle of limits and capabilities enforced by
// the download, playlist and pack-request endpoints.
type Benefits struct {
	Tier                     string `json:"tier"`
	DownloadsPerDay          int    `json:"downloads_per_day"` // -1 = unlimited
	PackRequestsPerWeek      int    `json:"pack_requests_per_week"`
	PlaylistDownloadsPerWeek int    `json:"playlist_downloads_per_week"`
	PrioritySupport          bool   `json:"priority_support"`
	ExclusiveGenres          bool   `json:"exclusive_genres"`
	DirectDownload           bool   `json:"direct_download"`
	Deemix                   bool   `json:"deemix"`
	DeezerPremium            bool   `json:"deezer_premium"`
}

// UnlimitedDownloads reports whether the daily download cap is disabled
func (b Benefits) UnlimitedDownloads() bool {
	return b.DownloadsPerDay == plans.Unlimited
}

// Resolve maps a base plan price to its benefit bundle. Pure function: no
// I/O, called fresh on every request that checks a limit. basePrice is the
// plan price WITHOUT add-on components; callers holding only a combined
// total must decompose it first (see InferBase). Admin accounts always get
// the top tier regardless of price - an explicit role decision, never an
// identity string match.
func Resolve(cat *plans.Catalog, basePrice float64, isAdmin bool, addons map[plans.AddOn]bool) Benefits {
	tier := cat.TierFor(basePrice)
	if isAdmin {
		tier = cat.Top()
	}
	return Benefits{
		Tier:                     tier.Name,
		DownloadsPerDay:          tier.DownloadsPerDay,
		PackRequestsPerWeek:      tier.PackRequestsPerWeek,
		PlaylistDownloadsPerWeek: tier.PlaylistDownloadsPerWeek,
		PrioritySupport:          tier.PrioritySupport,
		ExclusiveGenres:          tier.ExclusiveGenres,
		DirectDownload:           tier.DirectDownload,
		Deemix:                   addons[plans.AddOnDeemix],
		DeezerPremium:            addons[plans.AddOnDeezerPremium],
	}
}

// ResolveUser resolves benefits for a stored user row. Rows written since
// the base price was split out carry it directly; legacy rows only have
// the combined total, which gets decomposed first. An expired subscription
// resolves like a non-subscriber.
func ResolveUser(cat *plans.Catalog, u *models.User) Benefits {
	addons := ActiveAddOns(u)
	isAdmin := u.UserType == models.UserTypeAdmin

	base := u.BasePrice
	if base <= 0 {
		base = InferBase(cat, u.PlanPrice, addons)
	}
	if !isAdmin && !u.IsSubscribed() {
		base = 0
	}
	return Resolve(cat, base, isAdmin, addons)
}

// ActiveAddOns collects the user's add-on flags into the map shape the
// resolver and recalculator consume.
func ActiveAddOns(u *models.User) map[plans.AddOn]bool {
	return map[plans.AddOn]bool{
		plans.AddOnDeemix:        u.Deemix,
		plans.AddOnDeezerPremium: u.DeezerPremium,
	}
}
