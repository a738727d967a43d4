package dto

// SyncGroupResponse acknowledges that a sync job was enqueued
type SyncGroupResponse struct {
	Message string `json:"message"`
	ChatID  int64  `json:"chat_id"`
}

// DiscoverGroupsResponse acknowledges that a full re-sync was enqueued
type DiscoverGroupsResponse struct {
	Message string `json:"message"`
}
