package user

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"blogclient/internal/app/media"
	"blogclient/internal/pkg/errs"
)

var (
	usernameRegex  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRegex     = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,})+$`)
	twitterRegex   = regexp.MustCompile(`^@?[a-zA-Z0-9_]{1,15}$`)
	githubRegex    = regexp.MustCompile(`^[a-zA-Z0-9-]{1,39}$`)
	linkedinRegex  = regexp.MustCompile(`^[a-zA-Z0-9-]{3,100}$`)
	instagramRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]{1,30}$`)
)

// SignupInput is the registration form.
type SignupInput struct {
	Username        string      `json:"username"`
	Email           string      `json:"email"`
	FullName        string      `json:"fullName"`
	Password        string      `json:"password"`
	ConfirmPassword string      `json:"confirmPassword,omitempty"`
	Bio             string      `json:"bio,omitempty"`
	Avatar          *media.File `json:"-"`
}

// Validate returns field-scoped messages for every invalid field, or nil.
func (in *SignupInput) Validate() *errs.CustomError {
	fields := map[string]string{}

	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		fields["username"] = "Username is required"
	case utf8.RuneCountInString(username) < 3:
		fields["username"] = "Username must be at least 3 characters"
	case utf8.RuneCountInString(username) > 30:
		fields["username"] = "Username cannot exceed 30 characters"
	case !usernameRegex.MatchString(username):
		fields["username"] = "Username can only contain letters, numbers, and underscores"
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		fields["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(email); err != nil || !emailRegex.MatchString(email) {
		fields["email"] = "Please enter a valid email address"
	}

	if msg := validateFullName(in.FullName); msg != "" {
		fields["fullName"] = msg
	}

	switch {
	case in.Password == "":
		fields["password"] = "Password is required"
	case utf8.RuneCountInString(in.Password) < 6:
		fields["password"] = "Password must be at least 6 characters"
	}

	switch {
	case in.ConfirmPassword == "":
		fields["confirmPassword"] = "Please confirm your password"
	case in.ConfirmPassword != in.Password:
		fields["confirmPassword"] = "Passwords do not match"
	}

	if in.Avatar != nil {
		if err := media.Validate(in.Avatar, media.KindImage); err != nil {
			fields["avatar"] = err.Message
		}
	}

	return errs.Validation(fields)
}

// ProfileUpdate is a partial profile update. Nil fields are left unchanged.
// When Avatar is set the update is sent as multipart form data.
type ProfileUpdate struct {
	FullName                *string         `json:"fullName,omitempty"`
	Bio                     *string         `json:"bio,omitempty"`
	SocialLinks             *SocialLinks    `json:"socialLinks,omitempty"`
	NotificationPreferences map[string]bool `json:"notificationPreferences,omitempty"`
	Avatar                  *media.File     `json:"-"`
}

// IsEmpty reports whether the update changes nothing.
func (p *ProfileUpdate) IsEmpty() bool {
	return p.FullName == nil && p.Bio == nil && p.SocialLinks == nil &&
		p.NotificationPreferences == nil && p.Avatar == nil
}

// Validate returns field-scoped messages for every invalid field, or nil.
func (p *ProfileUpdate) Validate() *errs.CustomError {
	fields := map[string]string{}

	if p.IsEmpty() {
		fields["profile"] = "Nothing to update"
	}

	if p.FullName != nil {
		if msg := validateFullName(*p.FullName); msg != "" {
			fields["fullName"] = msg
		}
	}

	if p.Bio != nil && utf8.RuneCountInString(*p.Bio) > 500 {
		fields["bio"] = "Bio cannot exceed 500 characters"
	}

	if links := p.SocialLinks; links != nil {
		if links.Website != "" && !isValidURL(links.Website) {
			fields["socialLinks.website"] = "Please enter a valid website URL"
		}
		if links.Twitter != "" && !twitterRegex.MatchString(links.Twitter) {
			fields["socialLinks.twitter"] = "Please enter a valid Twitter username"
		}
		if links.Github != "" && !githubRegex.MatchString(links.Github) {
			fields["socialLinks.github"] = "Please enter a valid GitHub username"
		}
		if links.Linkedin != "" && !linkedinRegex.MatchString(links.Linkedin) {
			fields["socialLinks.linkedin"] = "Please enter a valid LinkedIn username"
		}
		if links.Instagram != "" && !instagramRegex.MatchString(links.Instagram) {
			fields["socialLinks.instagram"] = "Please enter a valid Instagram username"
		}
	}

	if p.Avatar != nil {
		if err := media.Validate(p.Avatar, media.KindImage); err != nil {
			fields["avatar"] = err.Message
		}
	}

	return errs.Validation(fields)
}

func validateFullName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "Full name is required"
	case utf8.RuneCountInString(name) < 2:
		return "Full name must be at least 2 characters"
	case utf8.RuneCountInString(name) > 100:
		return "Full name cannot exceed 100 characters"
	}
	return ""
}

func isValidURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
