package instagram

import (
	"encoding/json"

	"igcrawl/pkg/models"
)

// Envelope is the wrapper every v1 endpoint responds with
type Envelope struct {
	Meta       Meta            `json:"meta"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Meta carries the API status and, on failure, its error classification
type Meta struct {
	Code         int    `json:"code"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Pagination points at the next page of a list endpoint
type Pagination struct {
	NextCursor string `json:"next_cursor,omitempty"`
	NextURL    string `json:"next_url,omitempty"`
}

// User is a user object from search, profile and edge listings
type User struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name,omitempty"`
	Bio      string  `json:"bio,omitempty"`
	Counts   *Counts `json:"counts,omitempty"`
}

// Counts are the profile's advertised totals
type Counts struct {
	Media      int `json:"media"`
	Follows    int `json:"follows"`
	FollowedBy int `json:"followed_by"`
}

// Media is one item of the recent media listing
type Media struct {
	ID       string    `json:"id"`
	Likes    Count     `json:"likes"`
	Comments Count     `json:"comments"`
	Caption  *Caption  `json:"caption"`
	Location *Location `json:"location"`
}

// Count wraps a bare counter
type Count struct {
	Count int `json:"count"`
}

// Caption holds the text of a media caption
type Caption struct {
	Text string `json:"text"`
}

// Location is a tagged place; coordinates may be missing for named places
type Location struct {
	ID        json.Number `json:"id,omitempty"`
	Name      string      `json:"name,omitempty"`
	Latitude  *float64    `json:"latitude"`
	Longitude *float64    `json:"longitude"`
}

// ToProfile converts an API user into the crawler's profile model
func (u *User) ToProfile() *models.Profile {
	p := &models.Profile{
		ID:     u.ID,
		Handle: u.Username,
		Bio:    u.Bio,
	}
	if u.Counts != nil {
		p.FollowerCount = u.Counts.FollowedBy
		p.FollowingCount = u.Counts.Follows
		p.PostCount = u.Counts.Media
	}
	return p
}

// ToPost converts a media item into a post owned by accountID. Missing
// captions and coordinates map to nil.
func (m *Media) ToPost(accountID string) models.Post {
	post := models.Post{
		ID:           m.ID,
		AccountID:    accountID,
		LikeCount:    m.Likes.Count,
		CommentCount: m.Comments.Count,
	}
	if m.Caption != nil {
		text := m.Caption.Text
		post.Caption = &text
	}
	if m.Location != nil && m.Location.Latitude != nil && m.Location.Longitude != nil {
		post.Location = &models.Location{
			Latitude:  *m.Location.Latitude,
			Longitude: *m.Location.Longitude,
		}
	}
	return post
}
