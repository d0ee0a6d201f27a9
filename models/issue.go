package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Roads        IssueCategory = "Roads"
	Lighting     IssueCategory = "Lighting"
	WaterSupply  IssueCategory = "Water Supply"
	Cleanliness  IssueCategory = "Cleanliness"
	PublicSafety IssueCategory = "Public Safety"
	Obstructions IssueCategory = "Obstructions"
)

// IssueCategories lists every category in display order.
var IssueCategories = []IssueCategory{Roads, Lighting, WaterSupply, Cleanliness, PublicSafety, Obstructions}

func (c IssueCategory) Valid() bool {
	for _, known := range IssueCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	Reported   IssueStatus = "Reported"
	InProgress IssueStatus = "In Progress"
	Resolved   IssueStatus = "Resolved"
)

var IssueStatuses = []IssueStatus{Reported, InProgress, Resolved}

func (s IssueStatus) Valid() bool {
	for _, known := range IssueStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// FilterAll disables a status or category filter.
const FilterAll = "All"

// Location is a GeoJSON point plus the address shown to users.
// Coordinates are stored as [longitude, latitude].
type Location struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address" json:"address"`
}

func NewLocation(longitude, latitude float64, address string) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{longitude, latitude},
		Address:     address,
	}
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[0]
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[1]
}

// ActivityEntry is one audit record on an issue. Entries are only ever appended.
type ActivityEntry struct {
	Action      string              `bson:"action" json:"action"`
	Description string              `bson:"description" json:"description"`
	UpdatedBy   *primitive.ObjectID `bson:"updatedBy" json:"updatedBy"`
	Timestamp   time.Time           `bson:"timestamp" json:"timestamp"`
}

// Flag records one user's report that an issue is spam or invalid.
type Flag struct {
	FlaggedBy primitive.ObjectID `bson:"flaggedBy" json:"flaggedBy"`
	Reason    string             `bson:"reason" json:"reason"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Issue represents a civic issue reported by a user
type Issue struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Category    IssueCategory       `bson:"category" json:"category"`
	Status      IssueStatus         `bson:"status" json:"status"`
	Location    Location            `bson:"location" json:"location"`
	Photos      []string            `bson:"photos" json:"photos"`
	ReportedBy  *primitive.ObjectID `bson:"reportedBy" json:"reportedBy"`
	IsAnonymous bool                `bson:"isAnonymous" json:"isAnonymous"`
	Activity    []ActivityEntry     `bson:"activity" json:"activity"`
	Flags       []Flag              `bson:"flags" json:"flags"`
	IsHidden    bool                `bson:"isHidden" json:"isHidden"`
	Version     int64               `bson:"version" json:"-"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`

	// ReporterName is resolved at read time and never persisted.
	ReporterName string `bson:"-" json:"reporterName,omitempty"`
}

// HasFlagFrom reports whether user already flagged the issue.
func (i *Issue) HasFlagFrom(user primitive.ObjectID) bool {
	for _, f := range i.Flags {
		if f.FlaggedBy == user {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate it without touching shared state.
func (i *Issue) Clone() *Issue {
	c := *i
	c.Location.Coordinates = append([]float64(nil), i.Location.Coordinates...)
	c.Photos = append([]string(nil), i.Photos...)
	c.Activity = append([]ActivityEntry(nil), i.Activity...)
	c.Flags = append([]Flag(nil), i.Flags...)
	if i.ReportedBy != nil {
		id := *i.ReportedBy
		c.ReportedBy = &id
	}
	return &c
}
