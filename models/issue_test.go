package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCategoryAndStatusValidation(t *testing.T) {
	assert.True(t, WaterSupply.Valid())
	assert.True(t, IssueCategory("Public Safety").Valid())
	assert.False(t, IssueCategory("Road").Valid())
	assert.False(t, IssueCategory(FilterAll).Valid())

	assert.True(t, InProgress.Valid())
	assert.False(t, IssueStatus("Pending").Valid())
}

func TestLocationAccessors(t *testing.T) {
	loc := NewLocation(77.59, 12.97, "MG Road")
	assert.Equal(t, "Point", loc.Type)
	assert.Equal(t, 77.59, loc.Longitude())
	assert.Equal(t, 12.97, loc.Latitude())

	assert.Zero(t, Location{}.Latitude())
}

func TestCloneIsDeep(t *testing.T) {
	reporter := primitive.NewObjectID()
	flagger := primitive.NewObjectID()
	issue := &Issue{
		Location:   NewLocation(1, 2, "x"),
		Photos:     []string{"https://img/1.jpg"},
		ReportedBy: &reporter,
		Flags:      []Flag{{FlaggedBy: flagger, Reason: "spam"}},
	}

	c := issue.Clone()
	c.Location.Coordinates[0] = 9
	c.Photos[0] = "changed"
	c.Flags = append(c.Flags, Flag{FlaggedBy: primitive.NewObjectID()})
	*c.ReportedBy = primitive.NewObjectID()

	assert.Equal(t, 1.0, issue.Location.Longitude())
	assert.Equal(t, "https://img/1.jpg", issue.Photos[0])
	assert.Len(t, issue.Flags, 1)
	assert.Equal(t, reporter, *issue.ReportedBy)
	assert.True(t, issue.HasFlagFrom(flagger))
	assert.False(t, issue.HasFlagFrom(reporter))
}
