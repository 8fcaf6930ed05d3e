package federation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("handling join: %w", forbidden(msgInvalidInvite))

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, msgInvalidInvite, PublicMessage(err))
}

func TestRemoteErrorKinds(t *testing.T) {
	tests := []struct {
		code int
		want Kind
	}{
		{400, KindValidation},
		{403, KindForbidden},
		{404, KindNotFound},
		{409, KindConflict},
		{500, KindTransient},
		{502, KindTransient},
	}
	for _, tt := range tests {
		err := &RemoteError{StatusCode: tt.code, Message: "nope"}
		assert.Equal(t, tt.want, KindOf(err), "status %d", tt.code)
		assert.Equal(t, "nope", PublicMessage(err))
	}
}

func TestUnclassifiedError(t *testing.T) {
	err := errors.New("disk on fire")
	assert.Equal(t, Kind(""), KindOf(err))
	assert.Equal(t, "internal error", PublicMessage(err))
}

func TestGenerateInviteCode(t *testing.T) {
	a, err := GenerateInviteCode()
	assert.NoError(t, err)
	b, _ := GenerateInviteCode()

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	assert.False(t, IsWeakSecret(a))
	assert.True(t, IsWeakSecret("webring", "webring"))
}
