package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
	"github.com/ybenkirane/atlaspay/internal/repository"
	"github.com/ybenkirane/atlaspay/internal/testutil"
)

func TestAccount(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("CreateAccount", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			t.Run("create ok", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					account, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
						Phone:        "+212600000001",
						ReferralCode: "AAAAA1",
					})

					require.NoError(t, err, "account has to be created ok")
					require.NotZero(t, account.ID)
					require.Equal(t, "+212600000001", account.Phone)
					require.True(t, account.Balance.IsZero(), "new account starts with zero balance")
					require.Equal(t, int64(1), account.Version, "new account starts at version 1")
					require.Nil(t, account.ReferredBy)
				})
			})

			t.Run("create duplicate phone", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
						Phone:        "+212600000002",
						ReferralCode: "AAAAA2",
					})
					require.NoError(t, err)

					_, err = storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
						Phone:        "+212600000002",
						ReferralCode: "AAAAA3",
					})

					require.ErrorIs(t, err, apperrors.ErrAccountAlreadyExists, "should return well known error")
				})
			})

			t.Run("create duplicate referral code", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
						Phone:        "+212600000004",
						ReferralCode: "AAAAA4",
					})
					require.NoError(t, err)

					_, err = storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
						Phone:        "+212600000005",
						ReferralCode: "AAAAA4",
					})

					require.ErrorIs(t, err, apperrors.ErrReferralCodeTaken, "should return well known error")
				})
			})

			t.Run("create with inviter", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					inviter, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
						Phone:        "+212600000006",
						ReferralCode: "AAAAA6",
					})
					require.NoError(t, err)

					invited, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
						Phone:        "+212600000007",
						ReferralCode: "AAAAA7",
						ReferredBy:   &inviter.ID,
					})

					require.NoError(t, err)
					require.NotNil(t, invited.ReferredBy)
					require.Equal(t, inviter.ID, *invited.ReferredBy)
				})
			})
		})
	})

	t.Run("GetAccount", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
				Phone:        "+212600000010",
				ReferralCode: "BBBBB1",
			})
			require.NoError(t, err)

			t.Run("by id", func(t *testing.T) {
				got, err := storage.Account().GetAccount(t.Context(), account.ID)

				require.NoError(t, err)
				require.Equal(t, account.ID, got.ID)
				require.Equal(t, account.Phone, got.Phone)
			})

			t.Run("by phone", func(t *testing.T) {
				got, err := storage.Account().GetAccountByPhone(t.Context(), "+212600000010")

				require.NoError(t, err)
				require.Equal(t, account.ID, got.ID)
			})

			t.Run("by referral code", func(t *testing.T) {
				got, err := storage.Account().GetAccountByReferralCode(t.Context(), "BBBBB1")

				require.NoError(t, err)
				require.Equal(t, account.ID, got.ID)
			})

			t.Run("nonexistent account", func(t *testing.T) {
				_, err := storage.Account().GetAccount(t.Context(), uuid.New())

				require.ErrorIs(t, err, apperrors.ErrAccountNotFound, "should return well known error")
			})
		})
	})

	t.Run("UpdateBalance", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
				Phone:        "+212600000020",
				ReferralCode: "CCCCC1",
			})
			require.NoError(t, err)

			t.Run("version matches", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					updated, err := storage.Account().UpdateBalance(t.Context(), account.ID, decimal.NewFromInt(500), account.Version)

					require.NoError(t, err, "update with the read version should not fail")
					require.True(t, updated.Balance.Equal(decimal.NewFromInt(500)), "balance should be set")
					require.Equal(t, account.Version+1, updated.Version, "version should be bumped")
				})
			})

			t.Run("version moved", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().UpdateBalance(t.Context(), account.ID, decimal.NewFromInt(500), account.Version)
					require.NoError(t, err)

					// Second writer still holds the old version
					_, err = storage.Account().UpdateBalance(t.Context(), account.ID, decimal.NewFromInt(700), account.Version)

					require.ErrorIs(t, err, apperrors.ErrVersionConflict, "stale version should return well known error")

					stored, err := storage.Account().GetAccount(t.Context(), account.ID)
					require.NoError(t, err)
					require.True(t, stored.Balance.Equal(decimal.NewFromInt(500)), "losing write should not touch the balance")
				})
			})

			t.Run("negative balance rejected by schema", func(t *testing.T) {
				inTx(t, tx, func(ttx pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().UpdateBalance(t.Context(), account.ID, decimal.NewFromInt(-1), account.Version)

					require.Error(t, err, "balance below zero should never be stored")
				})
			})
		})
	})

	t.Run("CountReferrals", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			inviter, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
				Phone:        "+212600000030",
				ReferralCode: "DDDDD1",
			})
			require.NoError(t, err)

			for i, phone := range []string{"+212600000031", "+212600000032"} {
				_, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
					Phone:        phone,
					ReferralCode: "DDDDD" + string(rune('2'+i)),
					ReferredBy:   &inviter.ID,
				})
				require.NoError(t, err)
			}

			count, err := storage.Account().CountReferrals(t.Context(), inviter.ID)

			require.NoError(t, err)
			require.Equal(t, int64(2), count)
		})
	})

	t.Run("Totals", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account, err := storage.Account().CreateAccount(t.Context(), repository.CreateAccountParams{
				Phone:        "+212600000040",
				ReferralCode: "EEEEE1",
			})
			require.NoError(t, err)

			_, err = storage.Account().UpdateBalance(t.Context(), account.ID, decimal.NewFromInt(250), account.Version)
			require.NoError(t, err)

			totals, err := storage.Account().Totals(t.Context())

			require.NoError(t, err)
			require.Equal(t, int64(1), totals.Accounts)
			require.True(t, totals.TotalBalance.Equal(decimal.NewFromInt(250)), "total balance should sum account balances")
		})
	})
}

func TestAdmin(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
		testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
			storage := NewStorage(innerTx)
			fn(innerTx, storage)
		})
	}

	t.Run("CreateAdmin", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			admin, err := storage.Admin().CreateAdmin(t.Context(), "reviewer", "hashedpassword")

			require.NoError(t, err, "admin has to be created ok")
			require.NotZero(t, admin.ID)
			require.Equal(t, "reviewer", admin.Username)

			t.Run("duplicate username", func(t *testing.T) {
				_, err := storage.Admin().CreateAdmin(t.Context(), "reviewer", "otherhash")

				require.ErrorIs(t, err, apperrors.ErrAdminAlreadyExists, "should return well known error")
			})
		})
	})

	t.Run("GetAdmin", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			admin, err := storage.Admin().CreateAdmin(t.Context(), "reviewer", "hashedpassword")
			require.NoError(t, err)

			t.Run("by id", func(t *testing.T) {
				got, err := storage.Admin().GetAdminByID(t.Context(), admin.ID)

				require.NoError(t, err)
				require.Equal(t, admin.Username, got.Username)
			})

			t.Run("by username", func(t *testing.T) {
				got, err := storage.Admin().GetAdminByUsername(t.Context(), "reviewer")

				require.NoError(t, err)
				require.Equal(t, admin.ID, got.ID)
				require.Equal(t, "hashedpassword", got.HashedPassword)
			})

			t.Run("nonexistent admin", func(t *testing.T) {
				_, err := storage.Admin().GetAdminByID(t.Context(), uuid.New())

				require.ErrorIs(t, err, apperrors.ErrAdminNotFound, "should return well known error")
			})
		})
	})
}
