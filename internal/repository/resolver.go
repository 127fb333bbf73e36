package repository

import (
	"jainn/internal/domain/models"
	"jainn/internal/domain/repositories"
)

// HistoryResolver routes history operations by user identity: guest IDs
// go to the file-backed local store, everything else to the database.
type HistoryResolver struct {
	remote repositories.ChatHistoryRepository
	local  repositories.ChatHistoryRepository
}

// NewHistoryResolver creates a resolver over the two backing stores.
func NewHistoryResolver(remote, local repositories.ChatHistoryRepository) *HistoryResolver {
	return &HistoryResolver{remote: remote, local: local}
}

// HistoryFor returns the store that owns the given user's history.
func (r *HistoryResolver) HistoryFor(userID string) repositories.ChatHistoryRepository {
	if models.IsGuestID(userID) {
		return r.local
	}
	return r.remote
}
