package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/clock"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var (
	today   = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	ownerID = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	acctID  = uuid.MustParse("00000000-0000-0000-0000-000000000001")
)

type recordingPublisher struct {
	events []transaction.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev transaction.Event) error {
	p.events = append(p.events, ev)
	return nil
}

func checking(balance string) *account.Account {
	return &account.Account{
		ID:             acctID,
		OwnerID:        ownerID,
		Name:           "Checking",
		Type:           account.TypeChecking,
		OpeningBalance: decimal.RequireFromString(balance),
		Balance:        decimal.RequireFromString(balance),
		Active:         true,
	}
}

func expectBalance(t *testing.T, uow *transaction.MockUnitOfWork, want string) {
	t.Helper()

	uow.EXPECT().
		SetAccountBalance(gomock.Any(), acctID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, got decimal.Decimal) error {
			assert.True(t, decimal.RequireFromString(want).Equal(got), "balance %s, want %s", got, want)
			return nil
		})
}

func TestService_Create(t *testing.T) {
	type args struct {
		params transaction.CreateParams
	}

	type testCase struct {
		name       string
		args       args
		setupMock  func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork)
		wantStatus transaction.Status
		wantErr    error
	}

	paidExpense := transaction.CreateParams{
		OwnerID:   ownerID,
		AccountID: acctID,
		Title:     "Groceries",
		Amount:    decimal.RequireFromString("25.00"),
		Type:      transaction.TypeExpense,
		Status:    transaction.StatusPaid,
		Date:      today.AddDate(0, 0, -5),
	}

	pendingPast := paidExpense
	pendingPast.Status = transaction.StatusPending

	tests := []testCase{
		{
			name: "PaidAppliesEffect",
			args: args{params: paidExpense},
			setupMock: func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork) {
				m.EXPECT().Begin(gomock.Any()).Return(uow, nil)
				uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(checking("100.00"), nil).Times(2)
				uow.EXPECT().
					CreateTransactions(gomock.Any(), gomock.Len(1)).
					DoAndReturn(func(_ context.Context, txs []*transaction.Transaction) error {
						txs[0].ID = uuid.New()
						txs[0].CreatedAt = time.Now()
						return nil
					})
				expectBalance(t, uow, "75.00")
				uow.EXPECT().Commit().Return(nil)
				uow.EXPECT().Rollback().Return(nil)
			},
			wantStatus: transaction.StatusPaid,
		},
		{
			name: "PendingInThePastIsOverdue",
			args: args{params: pendingPast},
			setupMock: func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork) {
				m.EXPECT().Begin(gomock.Any()).Return(uow, nil)
				uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(checking("100.00"), nil)
				uow.EXPECT().
					CreateTransactions(gomock.Any(), gomock.Len(1)).
					DoAndReturn(func(_ context.Context, txs []*transaction.Transaction) error {
						txs[0].ID = uuid.New()
						return nil
					})
				uow.EXPECT().Commit().Return(nil)
				uow.EXPECT().Rollback().Return(nil)
			},
			wantStatus: transaction.StatusOverdue,
		},
		{
			name: "UnknownAccount",
			args: args{params: paidExpense},
			setupMock: func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork) {
				m.EXPECT().Begin(gomock.Any()).Return(uow, nil)
				uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(nil, account.ErrNotFound)
				uow.EXPECT().Rollback().Return(nil)
			},
			wantErr: transaction.ErrNotFound,
		},
		{
			name: "InactiveAccount",
			args: args{params: paidExpense},
			setupMock: func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork) {
				closed := checking("100.00")
				closed.Active = false

				m.EXPECT().Begin(gomock.Any()).Return(uow, nil)
				uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(closed, nil)
				uow.EXPECT().Rollback().Return(nil)
			},
			wantErr: transaction.ErrAccountMismatch,
		},
		{
			name: "InvalidAmount",
			args: args{params: transaction.CreateParams{
				OwnerID:   ownerID,
				AccountID: acctID,
				Amount:    decimal.RequireFromString("-3"),
				Type:      transaction.TypeIncome,
				Date:      today,
			}},
			setupMock: func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork) {
				m.EXPECT().Begin(gomock.Any()).Return(uow, nil)
				uow.EXPECT().Rollback().Return(nil)
			},
			wantErr: transaction.ErrInvalidAmount,
		},
		{
			name: "RepoErrorRollsBack",
			args: args{params: paidExpense},
			setupMock: func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork) {
				m.EXPECT().Begin(gomock.Any()).Return(uow, nil)
				uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(checking("100.00"), nil)
				uow.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
				uow.EXPECT().Rollback().Return(nil)
			},
			wantErr: errors.New("db error"),
		},
		{
			name: "UnknownCategory",
			args: args{params: func() transaction.CreateParams {
				p := paidExpense
				p.CategoryID = new(uuid.New())
				return p
			}()},
			setupMock: func(t *testing.T, m *transaction.MockRepository, uow *transaction.MockUnitOfWork) {
				m.EXPECT().Begin(gomock.Any()).Return(uow, nil)
				uow.EXPECT().CategoryExists(gomock.Any(), ownerID, gomock.Any()).Return(false, nil)
				uow.EXPECT().Rollback().Return(nil)
			},
			wantErr: transaction.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			uow := transaction.NewMockUnitOfWork(ctrl)
			tt.setupMock(t, repo, uow)

			svc := transaction.NewService(repo, clock.Fixed(today))
			got, err := svc.Create(context.Background(), tt.args.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				if !errors.Is(err, tt.wantErr) {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestService_Create_PublishesAfterCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	pub := &recordingPublisher{}
	svc := transaction.NewService(repo, clock.Fixed(today), transaction.WithPublisher(pub))

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(checking("0"), nil)
	uow.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(nil)
	uow.EXPECT().Commit().Return(errors.New("serialization failure"))
	uow.EXPECT().Rollback().Return(nil)

	_, err := svc.Create(context.Background(), transaction.CreateParams{
		OwnerID:   ownerID,
		AccountID: acctID,
		Amount:    decimal.RequireFromString("10"),
		Type:      transaction.TypeIncome,
		Date:      today,
	})

	require.Error(t, err)
	assert.Empty(t, pub.events, "nothing is published when the commit fails")
}

func TestService_Create_RecurrenceAndInstallmentsConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().Rollback().Return(nil)

	svc := transaction.NewService(repo, clock.Fixed(today))
	_, err := svc.Create(context.Background(), transaction.CreateParams{
		OwnerID:      ownerID,
		AccountID:    acctID,
		Amount:       decimal.RequireFromString("10"),
		Type:         transaction.TypeExpense,
		Date:         today,
		Installments: 3,
		Recurrence:   &transaction.Recurrence{Frequency: "monthly"},
	})

	assert.ErrorIs(t, err, transaction.ErrInvalidInstallmentCount)
}

func TestService_Update_InstallmentCannotChangeAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	id := uuid.New()
	existing := &transaction.Transaction{
		ID:          id,
		OwnerID:     ownerID,
		AccountID:   acctID,
		Amount:      decimal.RequireFromString("50"),
		Type:        transaction.TypeExpense,
		Status:      transaction.StatusPending,
		Date:        today,
		Installment: &transaction.Installment{Number: 2, Total: 3, ParentID: new(uuid.New())},
	}

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockTransaction(gomock.Any(), ownerID, id).Return(existing, nil)
	uow.EXPECT().Rollback().Return(nil)

	_, err := svc.Update(context.Background(), ownerID, id, transaction.UpdateParams{
		AccountID: new(uuid.New()),
	})

	assert.ErrorIs(t, err, transaction.ErrAccountMismatch)
}

func TestService_Update_PaidAmountChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	id := uuid.New()
	existing := &transaction.Transaction{
		ID:        id,
		OwnerID:   ownerID,
		AccountID: acctID,
		Amount:    decimal.RequireFromString("50"),
		Type:      transaction.TypeExpense,
		Status:    transaction.StatusPaid,
		Date:      today,
	}

	acc := checking("100")
	acc.Balance = decimal.RequireFromString("50")

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockTransaction(gomock.Any(), ownerID, id).Return(existing, nil)
	uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(acc, nil).AnyTimes()

	gomock.InOrder(
		uow.EXPECT().
			SetAccountBalance(gomock.Any(), acctID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, b decimal.Decimal) error {
				assert.Equal(t, "100", b.String())
				acc.Balance = b
				return nil
			}),
		uow.EXPECT().UpdateTransaction(gomock.Any(), gomock.Any()).Return(nil),
		uow.EXPECT().
			SetAccountBalance(gomock.Any(), acctID, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, b decimal.Decimal) error {
				assert.Equal(t, "20", b.String())
				acc.Balance = b
				return nil
			}),
	)

	uow.EXPECT().Commit().Return(nil)
	uow.EXPECT().Rollback().Return(nil)

	got, err := svc.Update(context.Background(), ownerID, id, transaction.UpdateParams{
		Amount: new(decimal.RequireFromString("80")),
	})

	require.NoError(t, err)
	assert.Equal(t, "80", got.Amount.String())
	assert.Equal(t, "50", existing.Amount.String(), "locked row is not mutated")
}

func TestService_MarkPaid_AlreadyPaidIsNoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	pub := &recordingPublisher{}
	svc := transaction.NewService(repo, clock.Fixed(today), transaction.WithPublisher(pub))

	id := uuid.New()
	paid := &transaction.Transaction{
		ID:        id,
		OwnerID:   ownerID,
		AccountID: acctID,
		Amount:    decimal.RequireFromString("10"),
		Type:      transaction.TypeIncome,
		Status:    transaction.StatusPaid,
		Date:      today,
	}

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockTransaction(gomock.Any(), ownerID, id).Return(paid, nil)
	uow.EXPECT().Commit().Return(nil)
	uow.EXPECT().Rollback().Return(nil)

	got, err := svc.MarkPaid(context.Background(), ownerID, id)

	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPaid, got.Status)
	assert.Empty(t, pub.events)
}

func TestService_MarkPending_PersistsPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	id := uuid.New()
	paid := &transaction.Transaction{
		ID:        id,
		OwnerID:   ownerID,
		AccountID: acctID,
		Amount:    decimal.RequireFromString("10"),
		Type:      transaction.TypeIncome,
		Status:    transaction.StatusPaid,
		Date:      today.AddDate(0, -1, 0),
	}

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockTransaction(gomock.Any(), ownerID, id).Return(paid, nil)
	uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(checking("10"), nil).Times(2)
	expectBalance(t, uow, "0")
	uow.EXPECT().
		UpdateTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
			assert.Equal(t, transaction.StatusPending, tx.Status)
			return nil
		})
	uow.EXPECT().Commit().Return(nil)
	uow.EXPECT().Rollback().Return(nil)

	got, err := svc.MarkPending(context.Background(), ownerID, id)

	require.NoError(t, err)
	assert.Equal(t, transaction.StatusOverdue, got.Status)
}

func TestService_Delete_RevertsPaid(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	id := uuid.New()
	paid := &transaction.Transaction{
		ID:        id,
		OwnerID:   ownerID,
		AccountID: acctID,
		Amount:    decimal.RequireFromString("40"),
		Type:      transaction.TypeExpense,
		Status:    transaction.StatusPaid,
		Date:      today,
	}

	acc := checking("100")
	acc.Balance = decimal.RequireFromString("60")

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockTransaction(gomock.Any(), ownerID, id).Return(paid, nil)
	uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(acc, nil).Times(2)
	expectBalance(t, uow, "100")
	uow.EXPECT().DeleteTransaction(gomock.Any(), ownerID, id).Return(nil)
	uow.EXPECT().Commit().Return(nil)
	uow.EXPECT().Rollback().Return(nil)

	require.NoError(t, svc.Delete(context.Background(), ownerID, id))
}

func TestService_Delete_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	id := uuid.New()

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockTransaction(gomock.Any(), ownerID, id).Return(nil, transaction.ErrNotFound)
	uow.EXPECT().Rollback().Return(nil)

	err := svc.Delete(context.Background(), ownerID, id)
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestService_List_ResolvesStatus(t *testing.T) {
	type testCase struct {
		name      string
		filter    transaction.ListFilter
		setupMock func(m *transaction.MockRepository)
		wantLen   int
		wantErr   bool
	}

	stored := func() []*transaction.Transaction {
		return []*transaction.Transaction{
			{ID: uuid.New(), Status: transaction.StatusPending, Date: today.AddDate(0, 0, -1)},
			{ID: uuid.New(), Status: transaction.StatusPending, Date: today},
			{ID: uuid.New(), Status: transaction.StatusPaid, Date: today.AddDate(0, 0, -9)},
		}
	}

	tests := []testCase{
		{
			name:   "All",
			filter: transaction.ListFilter{OwnerID: ownerID},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().ListTransactions(gomock.Any(), transaction.ListFilter{OwnerID: ownerID}).Return(stored(), nil)
			},
			wantLen: 3,
		},
		{
			name:   "OverdueOnly",
			filter: transaction.ListFilter{OwnerID: ownerID, Status: new(transaction.StatusOverdue)},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).Return(stored(), nil)
			},
			wantLen: 1,
		},
		{
			name:   "Error",
			filter: transaction.ListFilter{OwnerID: ownerID},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).Return(nil, errors.New("list error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			tt.setupMock(repo)

			svc := transaction.NewService(repo, clock.Fixed(today))
			got, err := svc.List(context.Background(), tt.filter)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_SweepOverdue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	repo.EXPECT().MarkOverdue(gomock.Any(), ownerID, today).Return(int64(3), nil)

	n, err := svc.SweepOverdue(context.Background(), ownerID, time.Time{})

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestService_Reconcile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	acc := checking("100")
	acc.Balance = decimal.RequireFromString("70")

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(acc, nil)
	uow.EXPECT().SumPaid(gomock.Any(), ownerID, acctID).Return(decimal.RequireFromString("-30"), nil)
	uow.EXPECT().Commit().Return(nil)
	uow.EXPECT().Rollback().Return(nil)

	rec, err := svc.Reconcile(context.Background(), ownerID, acctID)

	require.NoError(t, err)
	assert.True(t, rec.Balanced())
	assert.Equal(t, "70", rec.Expected.String())
}

func TestService_ImportBatch(t *testing.T) {
	type testCase struct {
		name          string
		duplicates    func(p transaction.CreateParams) []*transaction.Transaction
		wantImported  int
		wantNew       int
		wantConflicts int
	}

	row := func(notes, amount string, day int) transaction.CreateParams {
		return transaction.CreateParams{
			OwnerID:   ownerID,
			AccountID: acctID,
			Title:     notes,
			Notes:     notes,
			Amount:    decimal.RequireFromString(amount),
			Type:      transaction.TypeExpense,
			Status:    transaction.StatusPaid,
			Date:      time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		}
	}

	params := []transaction.CreateParams{
		row("COMPRA CONTINENTE", "42.10", 3),
		row("PAGAMENTO EDP", "30", 5),
	}

	tests := []testCase{
		{
			name:         "NoDuplicatesBooksEverything",
			duplicates:   func(transaction.CreateParams) []*transaction.Transaction { return nil },
			wantImported: 2,
		},
		{
			name: "DuplicateBooksNothing",
			duplicates: func(p transaction.CreateParams) []*transaction.Transaction {
				return []*transaction.Transaction{{
					ID:        uuid.New(),
					OwnerID:   ownerID,
					AccountID: acctID,
					Title:     "Supermarket",
					Notes:     p.Notes,
					Amount:    decimal.RequireFromString("42.1"),
					Type:      transaction.TypeExpense,
					Status:    transaction.StatusPaid,
					Date:      p.Date,
				}}
			},
			wantNew:       1,
			wantConflicts: 1,
		},
		{
			name: "SameTextOtherAmountIsNew",
			duplicates: func(p transaction.CreateParams) []*transaction.Transaction {
				return []*transaction.Transaction{{
					ID:        uuid.New(),
					OwnerID:   ownerID,
					AccountID: acctID,
					Notes:     p.Notes,
					Amount:    decimal.RequireFromString("42.11"),
					Type:      transaction.TypeExpense,
					Status:    transaction.StatusPaid,
					Date:      p.Date,
				}}
			},
			wantImported: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			uow := transaction.NewMockUnitOfWork(ctrl)
			svc := transaction.NewService(repo, clock.Fixed(today))

			repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
			uow.EXPECT().LockAccount(gomock.Any(), ownerID, acctID).Return(checking("100.00"), nil).MinTimes(1)
			uow.EXPECT().FindDuplicates(gomock.Any(), ownerID, params).Return(tt.duplicates(params[0]), nil)

			if tt.wantImported > 0 {
				uow.EXPECT().
					CreateTransactions(gomock.Any(), gomock.Len(1)).
					DoAndReturn(func(_ context.Context, txs []*transaction.Transaction) error {
						txs[0].ID = uuid.New()
						return nil
					}).
					Times(tt.wantImported)
				uow.EXPECT().SetAccountBalance(gomock.Any(), acctID, gomock.Any()).Return(nil).Times(tt.wantImported)
			}

			uow.EXPECT().Commit().Return(nil)
			uow.EXPECT().Rollback().Return(nil)

			got, err := svc.ImportBatch(context.Background(), params)
			require.NoError(t, err)

			assert.Len(t, got.Imported, tt.wantImported)
			assert.Len(t, got.New, tt.wantNew)
			assert.Len(t, got.Conflicts, tt.wantConflicts)

			if tt.wantConflicts > 0 {
				assert.Equal(t, params[0], got.Conflicts[0].Incoming)
				assert.Equal(t, "Supermarket", got.Conflicts[0].Existing.Title)
				assert.Equal(t, params[1], got.New[0])
			}
		})
	}
}

func TestService_ImportBatch_MixedOwners(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	uow := transaction.NewMockUnitOfWork(ctrl)
	svc := transaction.NewService(repo, clock.Fixed(today))

	repo.EXPECT().Begin(gomock.Any()).Return(uow, nil)
	uow.EXPECT().Rollback().Return(nil)

	_, err := svc.ImportBatch(context.Background(), []transaction.CreateParams{
		{OwnerID: ownerID, AccountID: acctID},
		{OwnerID: uuid.New(), AccountID: acctID},
	})
	assert.ErrorIs(t, err, transaction.ErrInvalidTransaction)
}
