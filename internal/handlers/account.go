package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/handlers/render"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/models"
)

func handleRegister(accountService accountService, l logger.Logger) http.Handler {
	type registerRequest struct {
		ReferralCode string `json:"referral_code"`
	}

	type registerResponse struct {
		ID           uuid.UUID `json:"id"`
		Phone        string    `json:"phone"`
		ReferralCode string    `json:"referral_code"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		phone, ok := PhoneFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// The body is optional, registration without an inviter is the
		// common case
		var data registerRequest
		if r.ContentLength > 0 {
			bound, err := render.BindAndValidate[registerRequest](w, r)
			if err != nil {
				return
			}
			data = bound
		}

		account, err := accountService.Register(r.Context(), phone, data.ReferralCode)

		switch {
		case err == nil:
			render.JSON(w, registerResponse{
				ID:           account.ID,
				Phone:        account.Phone,
				ReferralCode: account.ReferralCode,
			})
		case errors.Is(err, apperrors.ErrReferralCodeUnknown):
			render.ServiceError(w, "Unknown referral code", http.StatusUnprocessableEntity)
		default:
			l.Error("Failed to register account", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGetSummary(accountService accountService, l logger.Logger) http.Handler {
	type entryResponse struct {
		RequestID    uuid.UUID `json:"request_id"`
		Kind         string    `json:"kind"`
		Amount       float64   `json:"amount"`
		BalanceAfter float64   `json:"balance_after"`
		RecordedAt   time.Time `json:"recorded_at"`
	}

	type summaryResponse struct {
		Balance          float64         `json:"balance"`
		PendingCount     int64           `json:"pending_count"`
		LastTransactions []entryResponse `json:"last_transactions"`
	}

	toEntryResponse := func(e models.LedgerEntry) entryResponse {
		amount, _ := e.Amount.Float64()
		balanceAfter, _ := e.BalanceAfter.Float64()
		return entryResponse{
			RequestID:    e.RequestID,
			Kind:         e.Kind,
			Amount:       amount,
			BalanceAfter: balanceAfter,
			RecordedAt:   e.RecordedAt,
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		summary, err := accountService.GetSummary(r.Context(), account.ID)
		if err != nil {
			l.Error("Failed to get account summary", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		balance, _ := summary.Balance.Float64()
		response := summaryResponse{
			Balance:          balance,
			PendingCount:     summary.PendingCount,
			LastTransactions: make([]entryResponse, 0, len(summary.LastTransactions)),
		}
		for _, e := range summary.LastTransactions {
			response.LastTransactions = append(response.LastTransactions, toEntryResponse(e))
		}

		render.JSON(w, response)
	})
}

func handleGetTeamStats(accountService accountService, l logger.Logger) http.Handler {
	type teamResponse struct {
		ReferralCode string `json:"referral_code"`
		TeamSize     int64  `json:"team_size"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		stats, err := accountService.GetTeamStats(r.Context(), account.ID)
		if err != nil {
			l.Error("Failed to get team stats", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, teamResponse{
			ReferralCode: stats.ReferralCode,
			TeamSize:     stats.TeamSize,
		})
	})
}
