package models

import (
	"strings"
	"time"
)

// Tier is a user's subscription level. It gates feature access through
// the policy package; nothing else in the system branches on it.
type Tier string

const (
	TierGuest Tier = "guest"
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierUltra Tier = "ultra"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierGuest, TierFree, TierPro, TierUltra:
		return true
	}
	return false
}

// GuestIDPrefix marks locally generated guest identities. Guest users
// never pass through JWT verification and their history resolves to the
// local store.
const GuestIDPrefix = "guest_"

// IsGuestID reports whether the user ID belongs to an unauthenticated
// guest session.
func IsGuestID(userID string) bool {
	return strings.HasPrefix(userID, GuestIDPrefix)
}

// Profile is the stored account record for a user. The core only ever
// reads Tier; counters are owned by upstream billing jobs.
type Profile struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	Tier            Tier      `json:"tier" db:"tier"`
	TokensUsed      int       `json:"tokens_used" db:"tokens_used"`
	ImagesGenerated int       `json:"images_generated" db:"images_generated"`
	ThemeColor      string    `json:"theme_color" db:"theme_color"`
	DisplayName     *string   `json:"display_name,omitempty" db:"display_name"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
