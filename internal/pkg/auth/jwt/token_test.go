package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExpired(t *testing.T) {
	fresh, err := GenerateToken("u1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	stale, err := GenerateToken("u1", "secret", -time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	testCases := []struct {
		Description string
		Token       string
		Expected    bool
	}{
		{Description: "fresh jwt", Token: fresh, Expected: false},
		{Description: "expired jwt", Token: stale, Expected: true},
		{Description: "opaque token", Token: "d41d8cd98f00b204e9800998ecf8427e", Expected: false},
		{Description: "empty token", Token: "", Expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			if got, want := Expired(tc.Token, time.Now()), tc.Expected; got != want {
				t.Fatalf("unexpected Expired(): got %v want %v", got, want)
			}
		})
	}
}

func TestInspectReadsUserID(t *testing.T) {
	token, err := GenerateToken("user-42", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	claims, err := Inspect(token)
	if err != nil {
		t.Fatalf("Inspect() failed: %v", err)
	}

	if got, want := claims.ID, "user-42"; got != want {
		t.Fatalf("unexpected id: got %s want %s", got, want)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("u1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	if _, err := ParseToken(token, "other"); err == nil {
		t.Fatalf("expected an error for a token signed with another secret")
	}
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	token, err := GenerateToken("u1", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	revokedToken, err := GenerateToken("u2", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	revoked := func(tok string) bool { return tok == revokedToken }

	var seen *Claims
	handler := IdentityExtractorMiddleware("secret", revoked)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFromContext(r)
	}))

	testCases := []struct {
		Description string
		Header      string
		ExpectedID  string
	}{
		{Description: "valid bearer", Header: "Bearer " + token, ExpectedID: "u1"},
		{Description: "missing bearer prefix", Header: token},
		{Description: "revoked token", Header: "Bearer " + revokedToken},
		{Description: "no header"},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			seen = nil

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.Header != "" {
				r.Header.Set("Authorization", tc.Header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), r)

			gotID := ""
			if seen != nil {
				gotID = seen.ID
			}
			if gotID != tc.ExpectedID {
				t.Fatalf("unexpected identity: got %q want %q", gotID, tc.ExpectedID)
			}
		})
	}
}
