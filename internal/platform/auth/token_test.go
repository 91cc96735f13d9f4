package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def", FromHeader("Bearer abc.def"))
	assert.Equal(t, "abc", FromHeader("bearer   abc "))
	assert.Equal(t, "", FromHeader("Basic dXNlcjpwYXNz"))
	assert.Equal(t, "", FromHeader(""))
}

func TestBearerTokenRoundTrip(t *testing.T) {
	ctx := WithBearerToken(context.Background(), "tok")
	tok, ok := BearerToken(ctx)
	assert.True(t, ok)
	assert.Equal(t, "tok", tok)

	_, ok = BearerToken(WithBearerToken(context.Background(), "  "))
	assert.False(t, ok)
}
