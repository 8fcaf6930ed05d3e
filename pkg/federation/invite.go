package federation

import (
	"crypto/rand"
	"encoding/base64"

	zxcvbn "github.com/ccojocar/zxcvbn-go"
)

// GenerateInviteCode returns a random 16-character URL-safe invite code
func GenerateInviteCode() (string, error) {
	// 12 random bytes encode to exactly 16 base64 characters.
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// IsWeakSecret reports whether an operator-chosen invite code is easy to
// guess. Context words such as the ring id lower the score.
func IsWeakSecret(secret string, context ...string) bool {
	return zxcvbn.PasswordStrength(secret, context).Score < 3
}
