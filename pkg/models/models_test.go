package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder(t *testing.T) {
	assert.True(t, OrderInfluencer.Valid())
	assert.True(t, OrderCandidate.Valid())
	assert.False(t, Order(0).Valid())
	assert.False(t, Order(4).Valid())

	assert.True(t, OrderInfluencer.MoreImportantThan(OrderTarget))
	assert.False(t, OrderCandidate.MoreImportantThan(OrderTarget))
	assert.False(t, OrderTarget.MoreImportantThan(OrderTarget))

	assert.Equal(t, "influencer", OrderInfluencer.String())
	assert.Equal(t, "target", OrderTarget.String())
	assert.Equal(t, "candidate", OrderCandidate.String())
	assert.Equal(t, "order(7)", Order(7).String())
}

func TestEdgeFor(t *testing.T) {
	// 200 follows 100
	assert.Equal(t, Edge{AccountID: "100", FollowerID: "200"}, EdgeFor("100", "200", Followers))
	// 100 follows 400
	assert.Equal(t, Edge{AccountID: "400", FollowerID: "100"}, EdgeFor("100", "400", Following))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("followers")
	assert.NoError(t, err)
	assert.Equal(t, Followers, d)

	_, err = ParseDirection("likes")
	assert.Error(t, err)
}

func TestStatedCount(t *testing.T) {
	a := &Account{Profile: Profile{FollowerCount: 10, FollowingCount: 3}}
	assert.Equal(t, 10, a.StatedCount(Followers))
	assert.Equal(t, 3, a.StatedCount(Following))
}
