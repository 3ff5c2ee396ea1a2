package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid request", InvalidRequest("bad"), KindInvalidRequest},
		{"unauthenticated", Unauthenticated("who"), KindUnauthenticated},
		{"internal", Internal(errors.New("db down")), KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
		{"wrapped", fmt.Errorf("ctx: %w", InvalidRequest("bad")), KindInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOf_HidesInternalDetail(t *testing.T) {
	err := Internal(errors.New("pq: relation users does not exist"))

	assert.Equal(t, "an unexpected error occurred", MessageOf(err))
	assert.NotContains(t, MessageOf(err), "pq")
	assert.Contains(t, err.Error(), "pq")
}

func TestMessageOf_UserFacing(t *testing.T) {
	assert.Equal(t, "token expired", MessageOf(InvalidRequest("token expired")))
	assert.Equal(t, "login required", MessageOf(Unauthenticated("login required")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("smtp timeout")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindInternal))
	assert.False(t, Is(nil, KindInternal))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "InvalidRequest", KindInvalidRequest.String())
	assert.Equal(t, "Unauthenticated", KindUnauthenticated.String())
	assert.Equal(t, "InternalError", KindInternal.String())
}
