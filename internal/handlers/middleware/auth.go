package middleware

import (
	"context"
	"net/http"

	"github.com/ybenkirane/atlaspay/internal/handlers"
	"github.com/ybenkirane/atlaspay/internal/handlers/render"
	"github.com/ybenkirane/atlaspay/internal/models"
)

type phoneVerifier interface {
	PhoneFromRequest(r *http.Request) (string, error)
}

type accountResolver interface {
	GetAccountByPhone(ctx context.Context, phone string) (models.Account, error)
}

type adminAuthService interface {
	Auth(ctx context.Context, r *http.Request) (models.Admin, error)
}

// IdentityMiddleware verifies the identity token and stores the verified
// phone in the request context. It does not require an account to exist yet,
// registration runs behind it.
func IdentityMiddleware(verifier phoneVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone, err := verifier.PhoneFromRequest(r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := handlers.NewContextWithPhone(r.Context(), phone)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountMiddleware verifies the identity token and resolves the account
// behind it. Requests from identities without an account are rejected until
// they register.
func AccountMiddleware(verifier phoneVerifier, accounts accountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone, err := verifier.PhoneFromRequest(r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			account, err := accounts.GetAccountByPhone(r.Context(), phone)
			if err != nil {
				render.ServiceError(w, "Account not registered", http.StatusUnauthorized)
				return
			}

			ctx := handlers.NewContextWithAccount(r.Context(), account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminMiddleware authenticates the reviewer behind the request
func AdminMiddleware(as adminAuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := as.Auth(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := handlers.NewContextWithAdmin(r.Context(), admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
