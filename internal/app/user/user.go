/*
Package user contains the user model returned by the API and the profile update payload.

The API is loosely typed: avatars arrive either as a URL string or as an object
with a url field, and follower lists hold either bare ids or embedded user
objects. The types below accept both shapes and always marshal one shape.
*/
package user

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Avatar is a user's profile picture.
type Avatar struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// UnmarshalJSON accepts "https://..." as well as {"url": "https://..."}.
func (a *Avatar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Avatar{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		*a = Avatar{URL: url}
		return nil
	}

	type plain Avatar
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Avatar(p)
	return nil
}

// UserRef is a reference to another user as embedded in follower lists,
// likes, comments and blog authors.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Avatar   Avatar `json:"avatar,omitzero"`
}

// UnmarshalJSON accepts a bare id string as well as an embedded user object.
func (r *UserRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = UserRef{ID: id}
		return nil
	}

	type plain UserRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = UserRef(p)
	return nil
}

// SocialLinks are the optional external profiles of a user.
type SocialLinks struct {
	Website   string `json:"website,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Github    string `json:"github,omitempty"`
	Linkedin  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// User is the full profile of a user.
type User struct {
	ID                      string          `json:"_id"`
	Username                string          `json:"username"`
	Email                   string          `json:"email,omitempty"`
	FullName                string          `json:"fullName"`
	Bio                     string          `json:"bio,omitempty"`
	Avatar                  Avatar          `json:"avatar,omitzero"`
	SocialLinks             SocialLinks     `json:"socialLinks,omitzero"`
	Followers               []UserRef       `json:"followers"`
	Following               []UserRef       `json:"following"`
	NotificationPreferences map[string]bool `json:"notificationPreferences,omitempty"`
}

// Ref returns the reference form of u.
func (u *User) Ref() UserRef {
	return UserRef{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Avatar:   u.Avatar,
	}
}

// Clone returns a deep copy of u. Snapshots handed to readers are clones.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	c := *u
	c.Followers = slices.Clone(u.Followers)
	c.Following = slices.Clone(u.Following)
	c.NotificationPreferences = maps.Clone(u.NotificationPreferences)
	return &c
}

// IsFollowedBy reports whether userID is among u's followers.
func (u *User) IsFollowedBy(userID string) bool {
	return ContainsRef(u.Followers, userID)
}

// IsFollowing reports whether u follows userID.
func (u *User) IsFollowing(userID string) bool {
	return ContainsRef(u.Following, userID)
}

// ContainsRef reports whether refs contains a reference to id.
func ContainsRef(refs []UserRef, id string) bool {
	return slices.ContainsFunc(refs, func(r UserRef) bool { return r.ID == id })
}

// WithoutRef returns refs minus every reference to id, as a new slice.
func WithoutRef(refs []UserRef, id string) []UserRef {
	out := make([]UserRef, 0, len(refs))
	for _, r := range refs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
