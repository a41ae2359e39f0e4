package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/account"
)

func TestService_Create(t *testing.T) {
	type args struct {
		params account.CreateParams
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *account.MockRepository)
		wantErr   error
	}

	owner := uuid.New()

	tests := []testCase{
		{
			name: "Success",
			args: args{params: account.CreateParams{
				OwnerID:        owner,
				Name:           "  Checking ",
				Type:           account.TypeChecking,
				OpeningBalance: decimal.RequireFromString("100.005"),
			}},
			setupMock: func(m *account.MockRepository) {
				m.EXPECT().
					CreateAccount(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, acc *account.Account) error {
						acc.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name:    "MissingName",
			args:    args{params: account.CreateParams{OwnerID: owner, Type: account.TypeCash}},
			wantErr: account.ErrInvalidAccount,
		},
		{
			name:    "UnknownType",
			args:    args{params: account.CreateParams{OwnerID: owner, Name: "Wallet", Type: "crypto"}},
			wantErr: account.ErrInvalidAccount,
		},
		{
			name: "RepoError",
			args: args{params: account.CreateParams{OwnerID: owner, Name: "Wallet", Type: account.TypeCash}},
			setupMock: func(m *account.MockRepository) {
				m.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := account.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := account.NewService(repo)
			got, err := svc.Create(context.Background(), tt.args.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Checking", got.Name)
			assert.True(t, got.Active)
			assert.Equal(t, "100.01", got.OpeningBalance.StringFixed(2))
			assert.True(t, got.OpeningBalance.Equal(got.Balance))
		})
	}
}

func TestService_Balance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := account.NewMockRepository(ctrl)
	svc := account.NewService(repo)

	owner, id := uuid.New(), uuid.New()

	repo.EXPECT().GetAccount(gomock.Any(), owner, id).Return(&account.Account{
		ID:      id,
		OwnerID: owner,
		Balance: decimal.RequireFromString("42.10"),
	}, nil)

	got, err := svc.Balance(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, "42.1", got.String())

	repo.EXPECT().GetAccount(gomock.Any(), owner, id).Return(nil, account.ErrNotFound)

	_, err = svc.Balance(context.Background(), owner, id)
	assert.ErrorIs(t, err, account.ErrNotFound)
}
