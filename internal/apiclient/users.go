package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
)

// LoginResponse is the answer to a successful login.
type LoginResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// Login exchanges credentials for a token and the user's profile.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, *errs.CustomError) {
	var out LoginResponse

	err := c.Do(ctx, Request{
		Method:  http.MethodPost,
		Path:    "/users/login",
		JSON:    map[string]string{"email": strings.TrimSpace(email), "password": password},
		Failure: errs.ErrLoginFailed,
	}, &out)
	if err != nil {
		return nil, err
	}

	if out.Token == "" || out.User == nil {
		return nil, errs.NewError(errs.ErrMalformedResponse)
	}

	return &out, nil
}

// Signup registers a new account. It is sent as multipart when an avatar is attached.
func (c *Client) Signup(ctx context.Context, in user.SignupInput) *errs.CustomError {
	payload := map[string]string{
		"username": strings.TrimSpace(in.Username),
		"email":    strings.ToLower(strings.TrimSpace(in.Email)),
		"password": in.Password,
		"fullName": strings.TrimSpace(in.FullName),
		"bio":      strings.TrimSpace(in.Bio),
	}

	r := Request{
		Method:  http.MethodPost,
		Path:    "/users/signup",
		Failure: errs.ErrSignupFailed,
	}

	if in.Avatar != nil {
		form := NewForm()
		for _, key := range []string{"username", "email", "password", "fullName", "bio"} {
			form.Set(key, payload[key])
		}
		avatar := *in.Avatar
		avatar.Field = "avatar"
		r.Form = form.AddFile(&avatar)
	} else {
		r.JSON = payload
	}

	return c.Do(ctx, r, nil)
}

// Me fetches the profile of the token's owner.
func (c *Client) Me(ctx context.Context, token string) (*user.User, *errs.CustomError) {
	body, err := c.DoRaw(ctx, Request{
		Path:    "/users/me",
		Token:   token,
		Failure: errs.ErrProfileFetchFailed,
	})
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := decodeAt(body, &u, "user", "data"); err != nil {
		return nil, err
	}

	return &u, nil
}

// ProfileResponse is the answer to a profile update. Token is set only when
// the API rotated the session token.
type ProfileResponse struct {
	User  *user.User
	Token string
}

// UpdateProfile applies p. It is sent as multipart when an avatar is attached.
func (c *Client) UpdateProfile(ctx context.Context, token string, p user.ProfileUpdate) (*ProfileResponse, *errs.CustomError) {
	r := Request{
		Method:  http.MethodPut,
		Path:    "/users/profile",
		Token:   token,
		Failure: errs.ErrProfileUpdateFailed,
	}

	if p.Avatar != nil {
		form := NewForm()
		if p.FullName != nil {
			form.Set("fullName", strings.TrimSpace(*p.FullName))
		}
		if p.Bio != nil {
			form.Set("bio", *p.Bio)
		}
		if p.SocialLinks != nil {
			if err := form.SetJSON("socialLinks", p.SocialLinks); err != nil {
				return nil, errs.NewError(errs.ErrUnknown, err)
			}
		}
		if p.NotificationPreferences != nil {
			if err := form.SetJSON("notificationPreferences", p.NotificationPreferences); err != nil {
				return nil, errs.NewError(errs.ErrUnknown, err)
			}
		}
		avatar := *p.Avatar
		avatar.Field = "avatar"
		r.Form = form.AddFile(&avatar)
	} else {
		r.JSON = p
	}

	body, err := c.DoRaw(ctx, r)
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := decodeAt(body, &u, "user", "data.user", "data"); err != nil {
		return nil, err
	}

	if u.ID == "" {
		return nil, errs.NewError(errs.ErrMalformedResponse)
	}

	out := &ProfileResponse{User: &u}

	var rotated struct {
		Token string `json:"token"`
	}
	if decodeAt(body, &rotated, "data") == nil {
		out.Token = rotated.Token
	}

	return out, nil
}

// Logout invalidates token on the server.
func (c *Client) Logout(ctx context.Context, token string) *errs.CustomError {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/users/logout",
		Token:  token,
	}, nil)
}

// Follow makes the token's owner follow userID.
func (c *Client) Follow(ctx context.Context, token, userID string) *errs.CustomError {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/users/follow/" + url.PathEscape(userID),
		Token:  token,
	}, nil)
}

// Unfollow makes the token's owner stop following userID.
func (c *Client) Unfollow(ctx context.Context, token, userID string) *errs.CustomError {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/users/unfollow/" + url.PathEscape(userID),
		Token:  token,
	}, nil)
}

// GetUser fetches the public profile of userID.
func (c *Client) GetUser(ctx context.Context, token, userID string) (*user.User, *errs.CustomError) {
	body, err := c.DoRaw(ctx, Request{
		Path:  "/users/id/" + url.PathEscape(userID),
		Token: token,
	})
	if err != nil {
		return nil, err
	}

	var u user.User
	if err := decodeAt(body, &u, "user", "data"); err != nil {
		return nil, err
	}

	return &u, nil
}
