package config

import "time"

const (
	// GuestTurnLimit is the hard cap on turns per conversation for guest
	// users. The gate denies the send that would start turn number
	// GuestTurnLimit+1.
	GuestTurnLimit = 10

	// MaxChatTitleLength is the maximum length for chat titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (titles should be short and descriptive).
	MaxChatTitleLength = 255

	// MaxPromptLength is the maximum length for a user prompt.
	// Backends reject far smaller inputs; this is a sanity ceiling.
	MaxPromptLength = 32_000

	// MaxAttachedFiles is the maximum number of files per prompt.
	MaxAttachedFiles = 5

	// DefaultDispatchTimeout bounds each fan-out model call. A hung
	// backend becomes a failed panel instead of blocking the join-all.
	DefaultDispatchTimeout = 60 * time.Second

	// DefaultRefereeTimeout bounds the background referee evaluation.
	DefaultRefereeTimeout = 45 * time.Second
)
