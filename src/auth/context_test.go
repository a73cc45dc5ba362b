package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountContext(t *testing.T) {
	_, ok := GetAccountFromContext(context.Background())
	assert.False(t, ok)

	accountNo, ok := GetAccountFromContext(WithAccount(context.Background(), "12345678"))
	assert.True(t, ok)
	assert.Equal(t, "12345678", accountNo)

	_, ok = GetAccountFromContext(WithAccount(context.Background(), ""))
	assert.False(t, ok)
}
