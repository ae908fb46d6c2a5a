package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
	"github.com/ybenkirane/atlaspay/internal/service/account"
	"github.com/ybenkirane/atlaspay/internal/service/request"
)

type accountService interface {
	Register(ctx context.Context, phone string, referredByCode string) (models.Account, error)
	GetSummary(ctx context.Context, accountID uuid.UUID) (account.Summary, error)
	GetTeamStats(ctx context.Context, accountID uuid.UUID) (account.TeamStats, error)
	GetPlatformStats(ctx context.Context) (account.PlatformStats, error)
}

type requestService interface {
	SubmitDeposit(ctx context.Context, p request.SubmitDepositParams) (models.TransactionRequest, error)
	SubmitWithdrawal(ctx context.Context, p request.SubmitWithdrawalParams) (models.TransactionRequest, error)
	Decide(ctx context.Context, requestID uuid.UUID, adminID uuid.UUID, approve bool, reason string) (models.TransactionRequest, error)
	Cancel(ctx context.Context, requestID uuid.UUID, accountID uuid.UUID) (models.TransactionRequest, error)
	ListPending(ctx context.Context, opts repository.ListRequestsOpts) ([]models.TransactionRequest, error)
	ListAccountRequests(ctx context.Context, accountID uuid.UUID, limit int) ([]models.TransactionRequest, error)
}

type adminAuthService interface {
	Login(ctx context.Context, username string, password string) (models.IssuedToken, error)
}

type RouterDeps struct {
	AccountService accountService
	RequestService requestService
	AdminAuth      adminAuthService
	Logger         logger.Logger

	// Authentication middlewares, constructed by the caller:
	// IdentityRequired verifies the phone identity only, AccountRequired
	// additionally resolves the registered account, AdminRequired
	// authenticates a reviewer.
	IdentityRequired func(http.Handler) http.Handler
	AccountRequired  func(http.Handler) http.Handler
	AdminRequired    func(http.Handler) http.Handler

	// Outermost middlewares applied to the whole router, first runs first
	Middlewares []func(http.Handler) http.Handler
}

func NewRouter(deps RouterDeps) http.Handler {
	l := deps.Logger
	if l == nil {
		l = logger.NewNoOp()
	}

	mux := http.NewServeMux()

	mux.Handle("POST /api/user/register", chain(handleRegister(deps.AccountService, l), deps.IdentityRequired))

	mux.Handle("GET /api/user/summary", chain(handleGetSummary(deps.AccountService, l), deps.AccountRequired))
	mux.Handle("GET /api/user/team", chain(handleGetTeamStats(deps.AccountService, l), deps.AccountRequired))
	mux.Handle("POST /api/user/deposits", chain(handleSubmitDeposit(deps.RequestService, l), deps.AccountRequired))
	mux.Handle("POST /api/user/withdrawals", chain(handleSubmitWithdrawal(deps.RequestService, l), deps.AccountRequired))
	mux.Handle("GET /api/user/requests", chain(handleListAccountRequests(deps.RequestService, l), deps.AccountRequired))
	mux.Handle("POST /api/user/requests/{id}/cancel", chain(handleCancelRequest(deps.RequestService, l), deps.AccountRequired))

	mux.Handle("POST /api/admin/login", handleAdminLogin(deps.AdminAuth, l))
	mux.Handle("GET /api/admin/requests", chain(handleListPending(deps.RequestService, l), deps.AdminRequired))
	mux.Handle("POST /api/admin/requests/{id}/decide", chain(handleDecideRequest(deps.RequestService, l), deps.AdminRequired))
	mux.Handle("GET /api/admin/stats", chain(handleGetPlatformStats(deps.AccountService, l), deps.AdminRequired))

	mux.Handle("GET /metrics", promhttp.Handler())

	return chain(mux, deps.Middlewares...)
}

// chain wraps the handler with middlewares, the first one listed runs first
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		h = middlewares[i](h)
	}
	return h
}
