package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/handlers/render"
	"github.com/ybenkirane/atlaspay/internal/logger"
	"github.com/ybenkirane/atlaspay/internal/metrics"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/service/request"
)

type requestResponse struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toRequestResponse(tr models.TransactionRequest) requestResponse {
	amount, _ := tr.Amount.Float64()
	return requestResponse{
		ID:        tr.ID,
		Kind:      tr.Kind,
		Amount:    amount,
		Status:    tr.Status,
		Reason:    tr.Reason,
		CreatedAt: tr.CreatedAt,
	}
}

func handleSubmitDeposit(requestService requestService, l logger.Logger) http.Handler {
	type depositRequest struct {
		Amount           decimal.Decimal `json:"amount" validate:"required"`
		PaymentMethod    string          `json:"payment_method" validate:"required"`
		FullName         string          `json:"full_name" validate:"required"`
		BankAccount      string          `json:"bank_account" validate:"required,rib"`
		ProofURI         string          `json:"proof_uri" validate:"required"`
		IdempotencyToken string          `json:"idempotency_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[depositRequest](w, r)
		if err != nil {
			return
		}

		created, err := requestService.SubmitDeposit(r.Context(), request.SubmitDepositParams{
			AccountID:        account.ID,
			Amount:           data.Amount,
			PaymentMethod:    data.PaymentMethod,
			FullName:         data.FullName,
			BankAccount:      data.BankAccount,
			ProofURI:         data.ProofURI,
			IdempotencyToken: data.IdempotencyToken,
		})

		switch {
		case err == nil:
			metrics.RequestsSubmitted.WithLabelValues(models.RequestKindDeposit).Inc()
			render.JSONWithStatus(w, toRequestResponse(created), http.StatusCreated)
		case errors.Is(err, apperrors.ErrDuplicateSubmission):
			// Client retry, report the request it already created
			render.JSON(w, toRequestResponse(created))
		default:
			writeSubmitError(w, l, err)
		}
	})
}

func handleSubmitWithdrawal(requestService requestService, l logger.Logger) http.Handler {
	type withdrawalRequest struct {
		Amount           decimal.Decimal `json:"amount" validate:"required"`
		FullName         string          `json:"full_name"`
		BankAccount      string          `json:"bank_account" validate:"required,rib"`
		IdempotencyToken string          `json:"idempotency_token" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[withdrawalRequest](w, r)
		if err != nil {
			return
		}

		created, err := requestService.SubmitWithdrawal(r.Context(), request.SubmitWithdrawalParams{
			AccountID:        account.ID,
			Amount:           data.Amount,
			FullName:         data.FullName,
			BankAccount:      data.BankAccount,
			IdempotencyToken: data.IdempotencyToken,
		})

		switch {
		case err == nil:
			metrics.RequestsSubmitted.WithLabelValues(models.RequestKindWithdrawal).Inc()
			render.JSONWithStatus(w, toRequestResponse(created), http.StatusCreated)
		case errors.Is(err, apperrors.ErrDuplicateSubmission):
			render.JSON(w, toRequestResponse(created))
		default:
			writeSubmitError(w, l, err)
		}
	})
}

func handleListAccountRequests(requestService requestService, l logger.Logger) http.Handler {
	const listLimit = 50

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		requests, err := requestService.ListAccountRequests(r.Context(), account.ID, listLimit)
		if err != nil {
			l.Error("Failed to list account requests", "error", err)
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

func handleCancelRequest(requestService requestService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := AccountFromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		requestID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid request id", http.StatusBadRequest)
			return
		}

		cancelled, err := requestService.Cancel(r.Context(), requestID, account.ID)

		switch {
		case err == nil:
			render.JSON(w, toRequestResponse(cancelled))
		case errors.Is(err, apperrors.ErrRequestNotFound):
			render.ServiceError(w, "Request not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInvalidTransition):
			render.ServiceError(w, "Request is already decided", http.StatusConflict)
		default:
			l.Error("Failed to cancel request", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

// writeSubmitError maps the validation taxonomy to HTTP statuses
func writeSubmitError(w http.ResponseWriter, l logger.Logger, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAmountOutOfRange):
		render.ServiceError(w, "Amount is out of allowed range", http.StatusUnprocessableEntity)
	case errors.Is(err, apperrors.ErrInvalidAccountNumber):
		render.ServiceError(w, "Bank account number must be 24 digits", http.StatusUnprocessableEntity)
	case errors.Is(err, apperrors.ErrMissingProof):
		render.ServiceError(w, "Proof of payment is required for deposits", http.StatusUnprocessableEntity)
	case errors.Is(err, apperrors.ErrProofNotAllowed):
		render.ServiceError(w, "Proof of payment is not expected for withdrawals", http.StatusUnprocessableEntity)
	case errors.Is(err, apperrors.ErrMissingField):
		render.ServiceError(w, "Required field is missing", http.StatusUnprocessableEntity)
	case errors.Is(err, apperrors.ErrUnknownPaymentMethod):
		render.ServiceError(w, "Unknown payment method", http.StatusUnprocessableEntity)
	case errors.Is(err, apperrors.ErrBalanceInsufficient):
		render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
	case errors.Is(err, apperrors.ErrAccountNotFound):
		render.ServiceError(w, "Account not found", http.StatusNotFound)
	default:
		l.Error("Failed to submit request", "error", err)
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
