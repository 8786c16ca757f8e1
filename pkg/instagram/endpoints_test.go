package instagram

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"igcrawl/pkg/models"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "/v1/users/search", SearchPath())
	assert.Equal(t, "/v1/users/100", ProfilePath("100"))
	assert.Equal(t, "/v1/users/100/media/recent", RecentMediaPath("100"))
	assert.Equal(t, "/v1/users/100/followed-by", EdgesPath("100", models.Followers))
	assert.Equal(t, "/v1/users/100/follows", EdgesPath("100", models.Following))
	assert.Equal(t, EndpointFollowers, EdgesEndpoint(models.Followers))
	assert.Equal(t, EndpointFollowing, EdgesEndpoint(models.Following))
}

func TestBuildURL(t *testing.T) {
	q := url.Values{}
	q.Set("cursor", "abc")
	assert.Equal(t, "https://api.instagram.com/v1/users/1/follows?cursor=abc",
		BuildURL("https://api.instagram.com/", "/v1/users/1/follows", q))
	assert.Equal(t, "http://x/v1/users/1", BuildURL("http://x", "/v1/users/1", nil))
}

func TestHandles(t *testing.T) {
	assert.Equal(t, "alice", SanitizeHandle(" @alice/ "))
	assert.True(t, IsValidHandle("alice.b_2"))
	assert.False(t, IsValidHandle("alice-b"))
	assert.False(t, IsValidHandle(""))
	assert.False(t, IsValidHandle("a234567890123456789012345678901"))
}
