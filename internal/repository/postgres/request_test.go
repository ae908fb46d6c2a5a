package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/models"
	"github.com/ybenkirane/atlaspay/internal/repository"
	"github.com/ybenkirane/atlaspay/internal/testutil"
)

func TestRequest(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	newAccount := func(t *testing.T, storage repository.Storage, phone string, code string) models.Account {
		t.Helper()
		account, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
			Phone:        phone,
			ReferralCode: code,
		})
		require.NoError(t, err)
		return account
	}

	deposit := func(accountID uuid.UUID, token string) models.TransactionRequest {
		return models.TransactionRequest{
			AccountID:        accountID,
			Kind:             models.RequestKindDeposit,
			Amount:           decimal.NewFromInt(500),
			PaymentMethod:    models.PaymentMethodCommonPay,
			FullName:         "Test User",
			BankAccount:      "123456789012345678901234",
			ProofURI:         "https://proofs.example/1.jpg",
			IdempotencyToken: token,
		}
	}

	t.Run("CreateRequest", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account := newAccount(t, storage, "+212600000100", "RRRRR1")

			t.Run("create ok", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, isNew, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-1"))

					require.NoError(t, err, "request has to be created ok")
					require.True(t, isNew, "first submission creates a new row")
					require.NotZero(t, created.ID)
					require.Equal(t, models.RequestStatusPending, created.Status, "new request starts pending")
					require.Nil(t, created.DecidedAt)
					require.Nil(t, created.DecidedBy)
				})
			})

			t.Run("same token returns existing row", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					first, isNew, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-2"))
					require.NoError(t, err)
					require.True(t, isNew)

					resubmitted := deposit(account.ID, "token-2")
					resubmitted.Amount = decimal.NewFromInt(999) // changed fields must be ignored
					second, isNew, err := storage.Request().CreateRequest(t.Context(), resubmitted)

					require.NoError(t, err, "resubmission should not fail")
					require.False(t, isNew, "resubmission must not create a second row")
					require.Equal(t, first.ID, second.ID, "existing request returned as is")
					require.True(t, second.Amount.Equal(first.Amount), "stored amount stays untouched")
				})
			})

			t.Run("same token different accounts", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					other := newAccount(t, storage, "+212600000101", "RRRRR2")

					first, isNew, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-3"))
					require.NoError(t, err)
					require.True(t, isNew)

					second, isNew, err := storage.Request().CreateRequest(t.Context(), deposit(other.ID, "token-3"))

					require.NoError(t, err)
					require.True(t, isNew, "token is scoped per account")
					require.NotEqual(t, first.ID, second.ID)
				})
			})
		})
	})

	t.Run("Decide", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account := newAccount(t, storage, "+212600000110", "SSSSS1")
			admin, err := storage.Admin().CreateAdmin(t.Context(), "reviewer", "hash")
			require.NoError(t, err)

			t.Run("approve pending", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-10"))
					require.NoError(t, err)

					decided, err := storage.Request().Decide(t.Context(), created.ID, models.RequestStatusApproved, admin.ID, nil)

					require.NoError(t, err)
					require.Equal(t, models.RequestStatusApproved, decided.Status)
					require.NotNil(t, decided.DecidedAt, "decision time has to be recorded")
					require.NotNil(t, decided.DecidedBy)
					require.Equal(t, admin.ID, *decided.DecidedBy, "deciding admin has to be recorded")
				})
			})

			t.Run("reject pending with reason", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-11"))
					require.NoError(t, err)

					reason := "proof unreadable"
					decided, err := storage.Request().Decide(t.Context(), created.ID, models.RequestStatusRejected, admin.ID, &reason)

					require.NoError(t, err)
					require.Equal(t, models.RequestStatusRejected, decided.Status)
					require.NotNil(t, decided.Reason)
					require.Equal(t, reason, *decided.Reason)
				})
			})

			t.Run("decide twice", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-12"))
					require.NoError(t, err)

					_, err = storage.Request().Decide(t.Context(), created.ID, models.RequestStatusApproved, admin.ID, nil)
					require.NoError(t, err)

					_, err = storage.Request().Decide(t.Context(), created.ID, models.RequestStatusRejected, admin.ID, nil)

					require.ErrorIs(t, err, apperrors.ErrInvalidTransition, "second decision should fail")
				})
			})

			t.Run("decide to illegal status", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-13"))
					require.NoError(t, err)

					_, err = storage.Request().Decide(t.Context(), created.ID, models.RequestStatusApplied, admin.ID, nil)

					require.ErrorIs(t, err, apperrors.ErrInvalidTransition, "only approved or rejected are valid decisions")
				})
			})

			t.Run("decide nonexistent request", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Request().Decide(t.Context(), uuid.New(), models.RequestStatusApproved, admin.ID, nil)

					require.ErrorIs(t, err, apperrors.ErrRequestNotFound, "should return well known error")
				})
			})
		})
	})

	t.Run("MarkApplied", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account := newAccount(t, storage, "+212600000120", "TTTTT1")
			admin, err := storage.Admin().CreateAdmin(t.Context(), "reviewer", "hash")
			require.NoError(t, err)

			t.Run("approved to applied", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-20"))
					require.NoError(t, err)
					_, err = storage.Request().Decide(t.Context(), created.ID, models.RequestStatusApproved, admin.ID, nil)
					require.NoError(t, err)

					applied, err := storage.Request().MarkApplied(t.Context(), created.ID)

					require.NoError(t, err)
					require.Equal(t, models.RequestStatusApplied, applied.Status)
				})
			})

			t.Run("pending to applied is illegal", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-21"))
					require.NoError(t, err)

					_, err = storage.Request().MarkApplied(t.Context(), created.ID)

					require.ErrorIs(t, err, apperrors.ErrInvalidTransition, "pending request can't be applied")
				})
			})

			t.Run("approved to rejected with reason", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-22"))
					require.NoError(t, err)
					_, err = storage.Request().Decide(t.Context(), created.ID, models.RequestStatusApproved, admin.ID, nil)
					require.NoError(t, err)

					failed, err := storage.Request().MarkFailed(t.Context(), created.ID, "insufficient balance at application time")

					require.NoError(t, err)
					require.Equal(t, models.RequestStatusRejected, failed.Status)
					require.NotNil(t, failed.Reason)
					require.Equal(t, "insufficient balance at application time", *failed.Reason)
				})
			})
		})
	})

	t.Run("Cancel", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account := newAccount(t, storage, "+212600000130", "UUUUU1")
			admin, err := storage.Admin().CreateAdmin(t.Context(), "reviewer", "hash")
			require.NoError(t, err)

			t.Run("cancel pending", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-30"))
					require.NoError(t, err)

					cancelled, err := storage.Request().Cancel(t.Context(), created.ID, account.ID)

					require.NoError(t, err)
					require.Equal(t, models.RequestStatusRejected, cancelled.Status)
					require.NotNil(t, cancelled.Reason)
				})
			})

			t.Run("cancel decided request", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-31"))
					require.NoError(t, err)
					_, err = storage.Request().Decide(t.Context(), created.ID, models.RequestStatusApproved, admin.ID, nil)
					require.NoError(t, err)

					_, err = storage.Request().Cancel(t.Context(), created.ID, account.ID)

					require.ErrorIs(t, err, apperrors.ErrInvalidTransition, "decided request can't be cancelled")
				})
			})

			t.Run("cancel foreign request", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					other := newAccount(t, storage, "+212600000131", "UUUUU2")

					created, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-32"))
					require.NoError(t, err)

					_, err = storage.Request().Cancel(t.Context(), created.ID, other.ID)

					require.ErrorIs(t, err, apperrors.ErrRequestNotFound, "foreign request should look like it does not exist")
				})
			})
		})
	})

	t.Run("ListRequests", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account := newAccount(t, storage, "+212600000140", "VVVVV1")
			admin, err := storage.Admin().CreateAdmin(t.Context(), "reviewer", "hash")
			require.NoError(t, err)

			first, _, err := storage.Request().CreateRequest(t.Context(), deposit(account.ID, "token-40"))
			require.NoError(t, err)

			withdrawal := models.TransactionRequest{
				AccountID:        account.ID,
				Kind:             models.RequestKindWithdrawal,
				Amount:           decimal.NewFromInt(200),
				FullName:         "Test User",
				BankAccount:      "123456789012345678901234",
				IdempotencyToken: "token-41",
			}
			second, _, err := storage.Request().CreateRequest(t.Context(), withdrawal)
			require.NoError(t, err)

			_, err = storage.Request().Decide(t.Context(), second.ID, models.RequestStatusApproved, admin.ID, nil)
			require.NoError(t, err)

			t.Run("filter by status", func(t *testing.T) {
				pending, err := storage.Request().ListRequests(t.Context(), repository.ListRequestsOpts{
					Statuses: []string{models.RequestStatusPending},
				})

				require.NoError(t, err)
				require.Len(t, pending, 1)
				require.Equal(t, first.ID, pending[0].ID)
			})

			t.Run("filter by kind", func(t *testing.T) {
				withdrawals, err := storage.Request().ListRequests(t.Context(), repository.ListRequestsOpts{
					Kinds: []string{models.RequestKindWithdrawal},
				})

				require.NoError(t, err)
				require.Len(t, withdrawals, 1)
				require.Equal(t, second.ID, withdrawals[0].ID)
			})

			t.Run("filter by account with limit", func(t *testing.T) {
				requests, err := storage.Request().ListRequests(t.Context(), repository.ListRequestsOpts{
					AccountID: &account.ID,
					Limit:     1,
				})

				require.NoError(t, err)
				require.Len(t, requests, 1, "limit should cap the result")
			})

			t.Run("count", func(t *testing.T) {
				count, err := storage.Request().CountRequests(t.Context(), repository.ListRequestsOpts{
					AccountID: &account.ID,
				})

				require.NoError(t, err)
				require.Equal(t, int64(2), count)
			})
		})
	})
}
