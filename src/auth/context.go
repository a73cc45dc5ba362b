package auth

import (
	"context"
)

type contextKey string

const AccountKey contextKey = "accountNo"

// WithAccount returns a copy of ctx carrying a verified subscriber account number.
func WithAccount(ctx context.Context, accountNo string) context.Context {
	return context.WithValue(ctx, AccountKey, accountNo)
}

func GetAccountFromContext(ctx context.Context) (string, bool) {
	accountNo, ok := ctx.Value(AccountKey).(string)
	return accountNo, ok && accountNo != ""
}
