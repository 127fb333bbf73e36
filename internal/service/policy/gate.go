// Package policy decides, per gated action, whether a user's tier and
// session state permit it. Everything here is pure and synchronous: the
// gate inspects the state it is handed and mutates nothing, so decisions
// are recomputed fresh for every action rather than cached.
package policy

import (
	"jainn/internal/config"
	"jainn/internal/domain/models"
	"jainn/internal/domain/models/chat"
)

// ReasonCode explains a denial. Denials are data, not errors: callers
// check Decision.Allowed before proceeding.
type ReasonCode string

const (
	ReasonNone               ReasonCode = ""
	ReasonGuestLimitReached  ReasonCode = "GuestLimitReached"
	ReasonUpgradeRequired    ReasonCode = "UpgradeRequired"
	ReasonFeatureUnavailable ReasonCode = "FeatureUnavailable"
)

// Message returns the blocking-notice text for a denial, matching the
// modals the client shows.
func (r ReasonCode) Message() string {
	switch r {
	case ReasonGuestLimitReached:
		return "You've reached the 10 message limit for guest users. Please sign up to continue chatting!"
	case ReasonUpgradeRequired:
		return "Multi-Agent Mode is a PRO feature. Upgrade to access collaborative AI."
	case ReasonFeatureUnavailable:
		return "Image generation is only available in Single Mode with the Gemini model."
	default:
		return ""
	}
}

// Decision is the gate's verdict on one action.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  ReasonCode `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason ReasonCode) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Session is the state the gate inspects. It is assembled per request
// from the profile store and the conversation being acted on; the gate
// never reaches into ambient state.
type Session struct {
	Tier      models.Tier
	Mode      chat.Mode
	Model     chat.ModelIdentity
	TurnCount int // prior user turns in the current conversation
}

// CanSend decides whether the session may submit another prompt in the
// requested mode.
//
// Guest users are capped at config.GuestTurnLimit turns per conversation
// but are otherwise unrestricted. Free users may not send in multi mode.
// Token and image counters for paid tiers are enforced upstream.
func CanSend(s Session, requested chat.Mode) Decision {
	if s.Tier == models.TierGuest && s.TurnCount >= config.GuestTurnLimit {
		return deny(ReasonGuestLimitReached)
	}
	if requested == chat.ModeMulti && !multiAllowed(s.Tier) {
		return deny(ReasonUpgradeRequired)
	}
	return allow()
}

// CanSwitchMode decides whether the session may move to the target mode.
func CanSwitchMode(s Session, target chat.Mode) Decision {
	if target == chat.ModeMulti && !multiAllowed(s.Tier) {
		return deny(ReasonUpgradeRequired)
	}
	return allow()
}

// CanUseImage decides whether image generation is available. It is only
// offered in single mode with the Gemini slot active; every other
// combination is denied regardless of tier.
func CanUseImage(s Session) Decision {
	if s.Mode != chat.ModeSingle || s.Model != chat.ModelGemini {
		return deny(ReasonFeatureUnavailable)
	}
	return allow()
}

// multiAllowed reports whether the tier may use multi-agent mode. Only
// the free tier is locked out; guests are bounded by the message cap
// instead.
func multiAllowed(t models.Tier) bool {
	return t != models.TierFree
}
