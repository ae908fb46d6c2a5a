package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/handlers/render"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/metrics"
	"github.com/ybenkirane/atlaspay/internal/repository"
)

func handleAdminLogin(adminAuth adminAuthService, l logger.Logger) http.Handler {
	type loginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	type loginResponse struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[loginRequest](w, r)
		if err != nil {
			return
		}

		token, err := adminAuth.Login(r.Context(), data.Username, data.Password)

		switch {
		case err == nil:
			render.JSON(w, loginResponse{
				Token:     token.Value,
				ExpiresAt: token.ExpiresAt,
			})
		case errors.Is(err, apperrors.ErrUnauthorized):
			render.ServiceError(w, "Invalid username or password", http.StatusUnauthorized)
		default:
			l.Error("Failed to login admin", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListPending(requestService requestService, l logger.Logger) http.Handler {
	const defaultLimit = 100

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		opts := repository.ListRequestsOpts{Limit: defaultLimit}

		query := r.URL.Query()
		if kind := query.Get("kind"); kind != "" {
			opts.Kinds = []string{kind}
		}
		if raw := query.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				render.ServiceError(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			opts.Limit = limit
		}
		if raw := query.Get("created_before"); raw != "" {
			createdBefore, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				render.ServiceError(w, "Invalid created_before, expected RFC 3339", http.StatusBadRequest)
				return
			}
			opts.CreatedBefore = &createdBefore
		}

		requests, err := requestService.ListPending(r.Context(), opts)
		if err != nil {
			l.Error("Failed to list pending requests", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		response := make([]requestResponse, 0, len(requests))
		for _, tr := range requests {
			response = append(response, toRequestResponse(tr))
		}
		render.JSON(w, response)
	})
}

func handleDecideRequest(requestService requestService, l logger.Logger) http.Handler {
	type decideRequest struct {
		Approve bool   `json:"approve"`
		Reason  string `json:"reason"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, ok := AdminFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		requestID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid request id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[decideRequest](w, r)
		if err != nil {
			return
		}

		decided, err := requestService.Decide(r.Context(), requestID, admin.ID, data.Approve, data.Reason)

		switch {
		case err == nil:
			metrics.RequestsDecided.WithLabelValues(decided.Status).Inc()
			render.JSON(w, toRequestResponse(decided))
		case errors.Is(err, apperrors.ErrRequestNotFound):
			render.ServiceError(w, "Request not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInvalidTransition):
			render.ServiceError(w, "Request is not pending", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUnauthorized):
			render.ServiceError(w, "Unauthorized", http.StatusForbidden)
		default:
			l.Error("Failed to decide request", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetPlatformStats(accountService accountService, l logger.Logger) http.Handler {
	type statsResponse struct {
		Accounts           int64   `json:"accounts"`
		TotalBalance       float64 `json:"total_balance"`
		PendingDeposits    int64   `json:"pending_deposits"`
		PendingWithdrawals int64   `json:"pending_withdrawals"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := accountService.GetPlatformStats(r.Context())
		if err != nil {
			l.Error("Failed to get platform stats", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		totalBalance, _ := stats.TotalBalance.Float64()
		render.JSON(w, statsResponse{
			Accounts:           stats.Accounts,
			TotalBalance:       totalBalance,
			PendingDeposits:    stats.PendingDeposits,
			PendingWithdrawals: stats.PendingWithdrawals,
		})
	})
}
