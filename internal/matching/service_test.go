package matching_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/matching"
)

func TestService_Learn(t *testing.T) {
	type testCase struct {
		name      string
		params    matching.LearnParams
		setupMock func(m *matching.MockRepository)
		want      *matching.Rule
		wantErr   error
	}

	owner := uuid.New()
	category := uuid.New()
	repoErr := errors.New("db down")

	tests := []testCase{
		{
			name:   "TrimsAndStores",
			params: matching.LearnParams{OwnerID: owner, RawPattern: "  COMPRA CONTINENTE ", Title: " Supermarket "},
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().CreateRule(gomock.Any(), gomock.Any()).Return(nil)
			},
			want: &matching.Rule{OwnerID: owner, RawPattern: "COMPRA CONTINENTE", Title: "Supermarket"},
		},
		{
			name:   "CategoryOnly",
			params: matching.LearnParams{OwnerID: owner, RawPattern: "EDP", CategoryID: &category},
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().CreateRule(gomock.Any(), gomock.Any()).Return(nil)
			},
			want: &matching.Rule{OwnerID: owner, RawPattern: "EDP", CategoryID: &category},
		},
		{
			name:    "MissingPattern",
			params:  matching.LearnParams{OwnerID: owner, RawPattern: "   ", Title: "Rent"},
			wantErr: matching.ErrInvalidRule,
		},
		{
			name:    "NothingToApply",
			params:  matching.LearnParams{OwnerID: owner, RawPattern: "MB WAY"},
			wantErr: matching.ErrInvalidRule,
		},
		{
			name:   "RepoError",
			params: matching.LearnParams{OwnerID: owner, RawPattern: "NOS", Title: "Internet"},
			setupMock: func(m *matching.MockRepository) {
				m.EXPECT().CreateRule(gomock.Any(), gomock.Any()).Return(repoErr)
			},
			wantErr: repoErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := matching.NewMockRepository(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := matching.NewService(repo).Learn(context.Background(), tt.params)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRule_Matches(t *testing.T) {
	type testCase struct {
		name    string
		pattern string
		raw     string
		want    bool
	}

	tests := []testCase{
		{name: "Substring", pattern: "continente", raw: "COMPRA CONTINENTE LISBOA", want: true},
		{name: "NoMatch", pattern: "pingo doce", raw: "COMPRA CONTINENTE", want: false},
		{name: "EmptyPattern", pattern: "", raw: "anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &matching.Rule{RawPattern: tt.pattern}
			assert.Equal(t, tt.want, r.Matches(tt.raw))
		})
	}
}

func TestRule_Better(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	long := &matching.Rule{RawPattern: "COMPRA CONTINENTE", CreatedAt: older}
	short := &matching.Rule{RawPattern: "CONTINENTE", CreatedAt: newer}
	assert.True(t, long.Better(short))
	assert.False(t, short.Better(long))

	a := &matching.Rule{RawPattern: "EDP", CreatedAt: newer}
	b := &matching.Rule{RawPattern: "NOS", CreatedAt: older}
	assert.True(t, a.Better(b))
}
