package handlers

import (
	"context"
	"log"
	"strconv"

	"boitata/app/dto"
	"boitata/queue"

	"github.com/gofiber/fiber/v3"
)

// BotTaskEnqueuer submits group discovery jobs to the bot-task queue
type BotTaskEnqueuer interface {
	EnqueueBotTask(ctx context.Context, payload queue.BotTaskPayload) error
}

// GroupHandlerInterface defines the contract for group sync handlers
type GroupHandlerInterface interface {
	SyncGroup(c fiber.Ctx) error
	DiscoverGroups(c fiber.Ctx) error
}

// GroupHandler enqueues group discovery work; syncs run in the bot-task
// worker, never inline in the request
type GroupHandler struct {
	enqueuer BotTaskEnqueuer
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(enqueuer BotTaskEnqueuer) *GroupHandler {
	return &GroupHandler{enqueuer: enqueuer}
}

// SyncGroup enqueues a sync for one group
func (h *GroupHandler) SyncGroup(c fiber.Ctx) error {
	chatID, err := strconv.ParseInt(c.Params("chat_id"), 10, 64)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid chat id", "INVALID_CHAT_ID", nil)
	}

	ctx, cancel := createRequestContext(0)
	defer cancel()

	if err := h.enqueuer.EnqueueBotTask(ctx, queue.BotTaskPayload{
		Kind:   queue.BotTaskSyncGroup,
		ChatID: chatID,
	}); err != nil {
		log.Println("group sync enqueue failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to enqueue group sync", "SYNC_ENQUEUE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusAccepted, "Group sync enqueued", dto.SyncGroupResponse{
		Message: "sync enqueued",
		ChatID:  chatID,
	})
}

// DiscoverGroups enqueues a full re-sync of every known group
func (h *GroupHandler) DiscoverGroups(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(0)
	defer cancel()

	if err := h.enqueuer.EnqueueBotTask(ctx, queue.BotTaskPayload{
		Kind: queue.BotTaskDiscoverAll,
	}); err != nil {
		log.Println("group discovery enqueue failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to enqueue group discovery", "DISCOVERY_ENQUEUE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusAccepted, "Group discovery enqueued", dto.DiscoverGroupsResponse{
		Message: "discovery enqueued",
	})
}
