package handlers

import (
	"context"

	"github.com/ybenkirane/atlaspay/internal/models"
)

type ctxKey string

const (
	accountKey ctxKey = "account"
	adminKey   ctxKey = "admin"
	phoneKey   ctxKey = "phone"
)

func NewContextWithAccount(ctx context.Context, a models.Account) context.Context {
	return context.WithValue(ctx, accountKey, a)
}

func AccountFromContext(ctx context.Context) (models.Account, bool) {
	a, ok := ctx.Value(accountKey).(models.Account)
	return a, ok
}

func NewContextWithAdmin(ctx context.Context, a models.Admin) context.Context {
	return context.WithValue(ctx, adminKey, a)
}

func AdminFromContext(ctx context.Context) (models.Admin, bool) {
	a, ok := ctx.Value(adminKey).(models.Admin)
	return a, ok
}

func NewContextWithPhone(ctx context.Context, phone string) context.Context {
	return context.WithValue(ctx, phoneKey, phone)
}

func PhoneFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(phoneKey).(string)
	return p, ok
}
