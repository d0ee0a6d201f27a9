package services

import (
	"context"
	"strings"
	"unicode/utf8"
	"time"

	"civictrack-be/logger"
	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// HideThreshold is the number of distinct flags that hides an issue for good.
	HideThreshold = 3

	DefaultFlagReason = "Inappropriate content"
	maxFlagReasonLen  = 500
)

// Moderator accepts flags and enforces the auto-hide threshold.
type Moderator struct {
	store store.IssueStore
	now   func() time.Time
}

func NewModerator(issueStore store.IssueStore, now func() time.Time) *Moderator {
	if now == nil {
		now = time.Now
	}
	return &Moderator{store: issueStore, now: now}
}

// Flag records actor's flag on the issue. The duplicate check and the
// threshold check run inside the store's optimistic update, so concurrent
// flaggers cannot both pass the duplicate check or skip the hide transition.
func (m *Moderator) Flag(ctx context.Context, issueID primitive.ObjectID, actor *primitive.ObjectID, reason string) (*models.Issue, error) {
	if actor == nil {
		metrics.FlagsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, newError(KindUnauthenticated, "You must be logged in to flag an issue")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultFlagReason
	}
	if utf8.RuneCountInString(reason) > maxFlagReasonLen {
		return nil, newError(KindInvalidArgument, "Flag reason must be at most 500 characters")
	}

	flagger := *actor
	var hidNow bool
	issue, err := m.store.Update(ctx, issueID, func(issue *models.Issue) error {
		hidNow = false
		if issue.HasFlagFrom(flagger) {
			return ErrAlreadyFlagged
		}

		now := m.now()
		issue.Flags = append(issue.Flags, models.Flag{
			FlaggedBy: flagger,
			Reason:    reason,
			Timestamp: now,
		})
		if len(issue.Flags) >= HideThreshold && !issue.IsHidden {
			issue.IsHidden = true
			hidNow = true
		}
		issue.UpdatedAt = now
		return nil
	})
	if err != nil {
		err = fromStore(err)
		metrics.FlagsTotal.WithLabelValues(strings.ToLower(KindOf(err).String())).Inc()
		return nil, err
	}

	metrics.FlagsTotal.WithLabelValues("accepted").Inc()
	if hidNow {
		metrics.IssuesHiddenTotal.Inc()
		logger.L().Info("issue_hidden", "issue_id", issue.ID.Hex(), "flags", len(issue.Flags))
	}
	return issue, nil
}
