package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// UserType represents the type of user
type UserType int

const (
	UserTypeMember   UserType = 1
	UserTypeSupport  UserType = 2
	UserTypeAdmin    UserType = 3
	UserTypeReadonly UserType = 4
)

// MarshalJSON converts UserType to string for JSON
func (ut UserType) MarshalJSON() ([]byte, error) {
	var s string
	switch ut {
	case UserTypeMember:
		s = "member"
	case UserTypeSupport:
		s = "support"
	case UserTypeAdmin:
		s = "admin"
	case UserTypeReadonly:
		s = "readonly"
	default:
		s = "unknown"
	}
	return json.Marshal(s)
}

// UnmarshalJSON converts string back to UserType for JSON parsing
func (ut *UserType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Try as integer for backward compatibility
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*ut = UserType(i)
		return nil
	}
	switch s {
	case "member":
		*ut = UserTypeMember
	case "support":
		*ut = UserTypeSupport
	case "admin":
		*ut = UserTypeAdmin
	case "readonly":
		*ut = UserTypeReadonly
	default:
		*ut = UserTypeMember
	}
	return nil
}

// User represents a pool member or staff account
type User struct {
	ID       uint     `gorm:"column:id;primaryKey" json:"id"`
	Username string   `gorm:"column:username;uniqueIndex;size:100;not null" json:"username"`
	Password string   `gorm:"column:password;size:255;not null" json:"-"`
	Email    string   `gorm:"column:email;size:255" json:"email"`
	Phone    string   `gorm:"column:phone;size:50" json:"phone"`
	FullName string   `gorm:"column:full_name;size:255" json:"full_name"`
	DJName   string   `gorm:"column:dj_name;size:100" json:"dj_name"`
	UserType UserType `gorm:"column:user_type;default:1" json:"user_type"`
	IsActive bool     `gorm:"column:is_active;default:true" json:"is_active"`
	IsVIP    bool     `gorm:"column:is_vip;default:false" json:"is_vip"`

	// Subscription pricing. PlanPrice is the billed total (base plan plus
	// active add-ons). BasePrice is stored separately so add-on toggles stay
	// exact; 0 means unknown (legacy rows carry only the combined total).
	PlanPrice          float64    `gorm:"column:plan_price;type:decimal(15,2);default:0" json:"plan_price"`
	BasePrice          float64    `gorm:"column:base_price;type:decimal(15,2);default:0" json:"base_price"`
	SubscriptionExpiry *time.Time `gorm:"column:subscription_expiry" json:"subscription_expiry"`

	// Add-ons
	Deemix        bool `gorm:"column:deemix;default:false" json:"deemix"`
	DeezerPremium bool `gorm:"column:deezer_premium;default:false" json:"deezer_premium"`

	// Usage counters - reset lazily when the stored window lapses
	DailyDownloadsUsed          int        `gorm:"column:daily_downloads_used;default:0" json:"daily_downloads_used"`
	DailyResetAt                *time.Time `gorm:"column:daily_reset_at" json:"daily_reset_at"`
	WeeklyPackRequestsUsed      int        `gorm:"column:weekly_pack_requests_used;default:0" json:"weekly_pack_requests_used"`
	WeeklyPlaylistDownloadsUsed int        `gorm:"column:weekly_playlist_downloads_used;default:0" json:"weekly_playlist_downloads_used"`
	WeeklyResetAt               *time.Time `gorm:"column:weekly_reset_at" json:"weekly_reset_at"`

	LastLogin *time.Time `gorm:"column:last_login" json:"last_login"`

	// 2FA fields (staff accounts)
	TwoFactorEnabled bool   `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `gorm:"column:two_factor_secret;size:255" json:"-"`

	// Force password change on first login
	ForcePasswordChange bool `gorm:"column:force_password_change;default:false" json:"force_password_change"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsStaff returns true for support, admin and readonly accounts
func (u *User) IsStaff() bool {
	return u.UserType != UserTypeMember
}

// IsSubscribed returns true while the paid subscription is current
func (u *User) IsSubscribed() bool {
	if u.PlanPrice <= 0 {
		return false
	}
	if u.SubscriptionExpiry == nil {
		return true
	}
	return time.Now().Before(*u.SubscriptionExpiry)
}

// DaysRemaining returns the number of days left on the subscription
func (u *User) DaysRemaining() int {
	if u.SubscriptionExpiry == nil {
		return 0
	}
	remaining := time.Until(*u.SubscriptionExpiry)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours() / 24)
}
