/*
Package randx generates and validates identifiers.

Request ids and draft ids are UUID v4 strings. Blog and user ids issued by the
API are 24-character hexadecimal object ids; IsValidObjectID rejects anything
else before it is interpolated into a request path.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// ObjectIDLength is the length of an API object id.
	ObjectIDLength = 24

	hexChars = "0123456789abcdef"
)

// RequestID returns a UUID v4 used as the X-Request-ID of an outgoing API call.
func RequestID() string {
	return uuid.New().String()
}

// DraftID returns a UUID v4 used as the primary key of a local draft.
func DraftID() string {
	return uuid.New().String()
}

// IsValidDraftID reports whether id parses as a UUID.
func IsValidDraftID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValidObjectID reports whether id is a 24-character hexadecimal object id.
func IsValidObjectID(id string) bool {
	if len(id) != ObjectIDLength {
		return false
	}

	for _, char := range strings.ToLower(id) {
		if !strings.ContainsRune(hexChars, char) {
			return false
		}
	}

	return true
}

// ObjectID generates a random object id. Used by the in-memory API fake.
func ObjectID() (string, error) {
	result := make([]byte, ObjectIDLength)

	for i := 0; i < ObjectIDLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(hexChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for object id: %v", err)
		}

		result[i] = hexChars[num.Int64()]
	}

	return string(result), nil
}
