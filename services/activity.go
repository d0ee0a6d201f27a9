package services

import (
	"time"

	"civictrack-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ActionReported            = "Reported"
	reportedDescription       = "Issue reported by user"
	statusChangedActionPrefix = "Status changed to "
	statusUpdatedDescPrefix   = "Issue status updated to "
)

// RecordCreation appends the single audit entry written when an issue is reported.
func RecordCreation(issue *models.Issue, actor *primitive.ObjectID, now time.Time) {
	issue.Activity = append(issue.Activity, models.ActivityEntry{
		Action:      ActionReported,
		Description: reportedDescription,
		UpdatedBy:   copyID(actor),
		Timestamp:   now,
	})
}

// RecordStatusChange sets the new status and appends its audit entry.
// An empty description falls back to a generated one.
func RecordStatusChange(issue *models.Issue, status models.IssueStatus, actor primitive.ObjectID, description string, now time.Time) {
	if description == "" {
		description = statusUpdatedDescPrefix + string(status)
	}
	issue.Status = status
	issue.UpdatedAt = now
	issue.Activity = append(issue.Activity, models.ActivityEntry{
		Action:      statusChangedActionPrefix + string(status),
		Description: description,
		UpdatedBy:   &actor,
		Timestamp:   now,
	})
}

func copyID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
