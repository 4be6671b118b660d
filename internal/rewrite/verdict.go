package rewrite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hhoang/fastai-rewrite/internal/domain"
)

// MarkRewriteApproved sets result=true on a rewrite interaction.
func (s *Service) MarkRewriteApproved(ctx context.Context, activityID string) error {
	if activityID == "" {
		return domain.NewValidationError("activityId", "is required")
	}
	if err := s.repo.MarkActivityApproved(ctx, activityID); err != nil {
		return fmt.Errorf("mark activity %s approved: %w", activityID, err)
	}
	return nil
}

// MarkChatInteraction applies a retroactive verdict to a chat turn and keeps
// the mirrored rewrite record consistent: while the turn is marked exactly
// one mirror exists whose result tracks approval; un-marking removes it. The
// chat update and the mirror reconcile commit in one store transaction.
func (s *Service) MarkChatInteraction(ctx context.Context, chatActivityID string, action domain.VerdictAction) error {
	if chatActivityID == "" {
		return domain.NewValidationError("chatActivityId", "is required")
	}
	if !action.Valid() {
		return domain.NewValidationError("action", `must be "approve" or "reject"`)
	}

	chat, err := s.repo.GetChatActivity(ctx, chatActivityID)
	if err != nil {
		return fmt.Errorf("load chat activity: %w", err)
	}
	if chat == nil {
		return fmt.Errorf("chat activity %s: %w", chatActivityID, domain.ErrNotFound)
	}

	chat.ApplyVerdict(action)

	if err := s.repo.ReconcileChatVerdict(ctx, chat, uuid.New().String()); err != nil {
		return fmt.Errorf("reconcile chat verdict: %w", err)
	}
	return nil
}
