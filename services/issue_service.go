// Package services implements issue reporting, proximity search, status
// tracking and moderation on top of a store.IssueStore.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civictrack-be/identity"
	"civictrack-be/logger"
	"civictrack-be/metrics"
	"civictrack-be/models"
	"civictrack-be/store"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateIssueInput carries a new report. Address comes from the caller's
// geocoder and is stored as given.
type CreateIssueInput struct {
	Title       string               `validate:"required,max=200"`
	Description string               `validate:"required,max=1000"`
	Category    models.IssueCategory `validate:"required"`
	Longitude   float64              `validate:"longitude"`
	Latitude    float64              `validate:"latitude"`
	Address     string               `validate:"required,max=300"`
	Photos      []string             `validate:"dive,url"`
	IsAnonymous bool
}

// IssueService is the entry point used by the HTTP layer.
type IssueService struct {
	store     store.IssueStore
	query     *QueryEngine
	moderator *Moderator
	validate  *validator.Validate
	now       func() time.Time
}

func NewIssueService(issueStore store.IssueStore, directory identity.Directory) *IssueService {
	return NewIssueServiceWithClock(issueStore, directory, time.Now)
}

func NewIssueServiceWithClock(issueStore store.IssueStore, directory identity.Directory, now func() time.Time) *IssueService {
	return &IssueService{
		store:     issueStore,
		query:     NewQueryEngine(issueStore, directory),
		moderator: NewModerator(issueStore, now),
		validate:  validator.New(),
		now:       now,
	}
}

// CreateIssue stores a new report in the Reported state. Anonymous reports
// never record the submitting identity.
func (s *IssueService) CreateIssue(ctx context.Context, in CreateIssueInput, actor *primitive.ObjectID) (*models.Issue, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Address = strings.TrimSpace(in.Address)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if !in.Category.Valid() {
		return nil, newError(KindInvalidArgument, "Invalid category")
	}

	reporter := copyID(actor)
	if in.IsAnonymous {
		reporter = nil
	}

	now := s.now()
	photos := append([]string{}, in.Photos...)
	issue := &models.Issue{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Status:      models.Reported,
		Location:    models.NewLocation(in.Longitude, in.Latitude, in.Address),
		Photos:      photos,
		ReportedBy:  reporter,
		IsAnonymous: in.IsAnonymous,
		Activity:    []models.ActivityEntry{},
		Flags:       []models.Flag{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	RecordCreation(issue, reporter, now)

	if _, err := s.store.Insert(ctx, issue); err != nil {
		return nil, fromStore(err)
	}

	metrics.IssuesCreatedTotal.WithLabelValues(string(issue.Category)).Inc()
	logger.L().Info("issue_created", "issue_id", issue.ID.Hex(), "category", issue.Category, "anonymous", issue.IsAnonymous)
	s.resolveReporter(ctx, issue)
	return issue, nil
}

// GetIssueByID returns the issue whether or not it is hidden.
func (s *IssueService) GetIssueByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	issue, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fromStore(err)
	}
	s.resolveReporter(ctx, issue)
	return issue, nil
}

// QueryIssuesNear delegates to the query engine.
func (s *IssueService) QueryIssuesNear(ctx context.Context, req NearbyRequest) ([]models.Issue, error) {
	return s.query.Near(ctx, req)
}

// UpdateStatus changes the status and logs exactly one activity entry.
// A missing issue fails before anything is written.
func (s *IssueService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, description string, actor *primitive.ObjectID) (*models.Issue, error) {
	if actor == nil {
		return nil, newError(KindUnauthenticated, "You must be logged in to update an issue's status")
	}
	if !status.Valid() {
		return nil, newError(KindInvalidArgument, "Invalid status")
	}
	description = strings.TrimSpace(description)

	updater := *actor
	issue, err := s.store.Update(ctx, id, func(issue *models.Issue) error {
		RecordStatusChange(issue, status, updater, description, s.now())
		return nil
	})
	if err != nil {
		return nil, fromStore(err)
	}

	metrics.StatusChangesTotal.WithLabelValues(string(status)).Inc()
	logger.L().Info("issue_status_changed", "issue_id", issue.ID.Hex(), "status", status)
	s.resolveReporter(ctx, issue)
	return issue, nil
}

// FlagIssue delegates to the moderator.
func (s *IssueService) FlagIssue(ctx context.Context, id primitive.ObjectID, actor *primitive.ObjectID, reason string) (*models.Issue, error) {
	return s.moderator.Flag(ctx, id, actor, reason)
}

// ListFlagged returns every flagged issue for review, hidden ones included.
func (s *IssueService) ListFlagged(ctx context.Context, actor *primitive.ObjectID) ([]models.Issue, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	issues, err := s.store.ListFlagged(ctx)
	if err != nil {
		return nil, fromStore(err)
	}
	s.query.resolveReporters(ctx, issues)
	return issues, nil
}

func (s *IssueService) Stats(ctx context.Context, actor *primitive.ObjectID) (*store.Stats, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fromStore(err)
	}
	return stats, nil
}

func (s *IssueService) resolveReporter(ctx context.Context, issue *models.Issue) {
	issues := []models.Issue{*issue}
	s.query.resolveReporters(ctx, issues)
	issue.ReporterName = issues[0].ReporterName
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Error{Kind: KindInvalidArgument, Err: err}
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "latitude", "longitude":
		msg = fmt.Sprintf("%s is out of range", field)
	case "url":
		msg = "photos must be valid URLs"
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return &Error{Kind: KindInvalidArgument, Message: msg, Err: err}
}
