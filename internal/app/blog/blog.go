/*
Package blog contains the post and comment models returned by the API, the post
form with its client-side validation, and the list query.
*/
package blog

import (
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"blogclient/internal/app/media"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
)

const (
	// MaxTitleLength is the longest accepted title, in characters.
	MaxTitleLength = 200

	// MaxExcerptLength is the longest accepted excerpt, in characters.
	MaxExcerptLength = 300

	// MaxTags is the largest number of tags a post may carry.
	MaxTags = 10

	// MaxCommentLength is the longest accepted comment, in characters.
	MaxCommentLength = 1000

	// WordsPerMinute drives the read time estimate.
	WordsPerMinute = 200

	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Categories are the categories a post may be filed under.
var Categories = []string{
	"Technology", "Design", "Development", "Business",
	"Lifestyle", "Travel", "Food", "Health",
	"Education", "Entertainment", "Other",
}

var markupRegex = regexp.MustCompile(`<[^>]*>`)

// Comment is a comment on a post.
type Comment struct {
	ID        string       `json:"_id"`
	Content   string       `json:"content"`
	User      user.UserRef `json:"user"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Blog is a post as returned by the API.
type Blog struct {
	ID           string         `json:"_id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	Excerpt      string         `json:"excerpt"`
	Category     string         `json:"category"`
	Tags         []string       `json:"tags"`
	Status       string         `json:"status"`
	Author       user.UserRef   `json:"author"`
	Media        *media.Media   `json:"media,omitempty"`
	MediaGallery []media.Media  `json:"mediaGallery,omitempty"`
	Likes        []user.UserRef `json:"likes"`
	Comments     []Comment      `json:"comments"`
	IsLiked      bool           `json:"isLiked,omitempty"`
	Views        int            `json:"views,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// LikeResult is the API's answer to a like toggle.
type LikeResult struct {
	Liked bool

	// Count is the post's like count after the toggle, or -1 when the API did not report it.
	Count int
}

// LikedBy reports whether userID is among the post's likes.
func (b *Blog) LikedBy(userID string) bool {
	return userID != "" && user.ContainsRef(b.Likes, userID)
}

// IsAuthoredBy reports whether userID wrote the post.
func (b *Blog) IsAuthoredBy(userID string) bool {
	return userID != "" && b.Author.ID == userID
}

// PostInput is the create/edit form of a post.
type PostInput struct {
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	Excerpt      string        `json:"excerpt"`
	Category     string        `json:"category"`
	Tags         []string      `json:"tags"`
	Status       string        `json:"status"`
	Media        *media.Media  `json:"media,omitempty"`
	MediaGallery []media.Media `json:"mediaGallery,omitempty"`
}

// Normalize trims the text fields, deduplicates tags and defaults the status to draft.
func (in *PostInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Category = strings.TrimSpace(in.Category)

	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(tags, tag) {
			tags = append(tags, tag)
		}
	}
	in.Tags = tags

	if in.Status == "" {
		in.Status = StatusDraft
	}
}

// Validate returns field-scoped messages for every invalid field, or nil.
func (in *PostInput) Validate() *errs.CustomError {
	fields := map[string]string{}

	switch {
	case strings.TrimSpace(in.Title) == "":
		fields["title"] = "Title is required"
	case utf8.RuneCountInString(in.Title) > MaxTitleLength:
		fields["title"] = "Title cannot exceed 200 characters"
	}

	if strings.TrimSpace(markupRegex.ReplaceAllString(in.Content, "")) == "" {
		fields["content"] = "Content is required"
	}

	switch {
	case strings.TrimSpace(in.Excerpt) == "":
		fields["excerpt"] = "Excerpt is required"
	case utf8.RuneCountInString(in.Excerpt) > MaxExcerptLength:
		fields["excerpt"] = "Excerpt cannot exceed 300 characters"
	}

	switch {
	case in.Category == "":
		fields["category"] = "Category is required"
	case !slices.Contains(Categories, in.Category):
		fields["category"] = "Please choose a valid category"
	}

	if len(in.Tags) > MaxTags {
		fields["tags"] = "Maximum 10 tags allowed"
	}

	if in.Status != "" && in.Status != StatusDraft && in.Status != StatusPublished {
		fields["status"] = "Status must be draft or published"
	}

	return errs.Validation(fields)
}

// ValidateComment trims content and checks it is non-empty and within bounds.
func ValidateComment(content string) (string, *errs.CustomError) {
	content = strings.TrimSpace(content)

	switch {
	case content == "":
		return "", errs.Validation(map[string]string{"content": "Comment cannot be empty"})
	case utf8.RuneCountInString(content) > MaxCommentLength:
		return "", errs.Validation(map[string]string{"content": "Comment cannot exceed 1000 characters"})
	}

	return content, nil
}

// WordCount counts the words of content once markup is stripped.
func WordCount(content string) int {
	return len(strings.Fields(markupRegex.ReplaceAllString(content, " ")))
}

// ReadTime estimates the minutes needed to read content, at least one.
func ReadTime(content string) int {
	minutes := int(math.Ceil(float64(WordCount(content)) / WordsPerMinute))
	return max(minutes, 1)
}

// ListQuery filters the post list.
type ListQuery struct {
	Category string
	Search   string
	Author   string
	Page     int
	Limit    int
}

// Values encodes q as query parameters, omitting unset fields.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Author != "" {
		v.Set("author", q.Author)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}
