package repositories

// HistoryResolver picks the history store backing a user's
// conversations: guests resolve to the local file-backed store,
// authenticated users to the remote one. Services above it never know
// which they got.
type HistoryResolver interface {
	HistoryFor(userID string) ChatHistoryRepository
}
