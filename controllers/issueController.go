package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"civictrack-be/middlewares"
	"civictrack-be/models"
	"civictrack-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

// IssueController exposes the issue service over HTTP.
type IssueController struct {
	issues *services.IssueService
}

func NewIssueController(issues *services.IssueService) *IssueController {
	return &IssueController{issues: issues}
}

type locationInput struct {
	Coordinates []float64 `json:"coordinates" binding:"omitempty,len=2"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Address     string    `json:"address" binding:"required,max=300"`
}

// point accepts either GeoJSON order [lng, lat] or explicit fields.
func (l locationInput) point() (lng, lat float64, ok bool) {
	if len(l.Coordinates) == 2 {
		return l.Coordinates[0], l.Coordinates[1], true
	}
	if l.Latitude != nil && l.Longitude != nil {
		return *l.Longitude, *l.Latitude, true
	}
	return 0, 0, false
}

type createIssueRequest struct {
	Title       string        `json:"title" binding:"required,max=200"`
	Description string        `json:"description" binding:"required,max=1000"`
	Category    string        `json:"category" binding:"required"`
	Location    locationInput `json:"location"`
	Photos      []string      `json:"photos" binding:"max=3,dive,url"`
	IsAnonymous bool          `json:"isAnonymous"`
}

type updateStatusRequest struct {
	Status      string `json:"status" binding:"required"`
	Description string `json:"description" binding:"max=500"`
}

type flagRequest struct {
	Reason string `json:"reason"`
}

// Create handles POST /api/issues
func (ic *IssueController) Create(c *gin.Context) {
	var input createIssueRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lng, lat, ok := input.Location.point()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Location coordinates are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.CreateIssue(ctx, services.CreateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    models.IssueCategory(input.Category),
		Longitude:   lng,
		Latitude:    lat,
		Address:     input.Location.Address,
		Photos:      input.Photos,
		IsAnonymous: input.IsAnonymous,
	}, middlewares.Actor(c))
	if err != nil {
		respondError(c, "create_issue", err)
		return
	}

	c.JSON(http.StatusCreated, issue)
}

// List handles GET /api/issues?latitude=&longitude=&radius=&status=&category=&search=
// lat and lng are accepted as short forms.
func (ic *IssueController) List(c *gin.Context) {
	lat, err := firstFloat(c, "latitude", "lat")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude must be a number"})
		return
	}
	lng, err := firstFloat(c, "longitude", "lng")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "longitude must be a number"})
		return
	}
	radius, err := optionalFloat(c, "radius")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "radius must be a number"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issues, err := ic.issues.QueryIssuesNear(ctx, services.NearbyRequest{
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  radius,
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Search:    c.Query("search"),
	})
	if err != nil {
		respondError(c, "query_issues", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"issues": issues,
		"count":  len(issues),
	})
}

// Get handles GET /api/issues/:id
func (ic *IssueController) Get(c *gin.Context) {
	id, ok := issueIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.GetIssueByID(ctx, id)
	if err != nil {
		respondError(c, "get_issue", err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateStatus handles PATCH /api/issues/:id/status
func (ic *IssueController) UpdateStatus(c *gin.Context) {
	id, ok := issueIDParam(c)
	if !ok {
		return
	}

	var input updateStatusRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.UpdateStatus(ctx, id, models.IssueStatus(input.Status), input.Description, middlewares.Actor(c))
	if err != nil {
		respondError(c, "update_status", err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// Flag handles POST /api/issues/:id/flag. The body is optional.
func (ic *IssueController) Flag(c *gin.Context) {
	id, ok := issueIDParam(c)
	if !ok {
		return
	}

	var input flagRequest
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issue, err := ic.issues.FlagIssue(ctx, id, middlewares.Actor(c), input.Reason)
	if err != nil {
		respondError(c, "flag_issue", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Issue flagged successfully",
		"flagCount": len(issue.Flags),
		"isHidden":  issue.IsHidden,
	})
}

// ListFlagged handles GET /api/admin/issues/flagged
func (ic *IssueController) ListFlagged(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	issues, err := ic.issues.ListFlagged(ctx, middlewares.Actor(c))
	if err != nil {
		respondError(c, "list_flagged", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"issues": issues,
		"count":  len(issues),
	})
}

// Stats handles GET /api/admin/stats
func (ic *IssueController) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	stats, err := ic.issues.Stats(ctx, middlewares.Actor(c))
	if err != nil {
		respondError(c, "issue_stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func issueIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue ID"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// firstFloat parses the first of keys present in the query string.
func firstFloat(c *gin.Context, keys ...string) (*float64, error) {
	for _, key := range keys {
		v, err := optionalFloat(c, key)
		if err != nil || v != nil {
			return v, err
		}
	}
	return nil, nil
}

func optionalFloat(c *gin.Context, key string) (*float64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
