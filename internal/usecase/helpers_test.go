package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/cardledger/internal/domain"
	"github.com/iho/cardledger/internal/usecase/mocks"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%04d", g.n)
}

// retryCollisions mimics the production retrier: duplicates are retried a
// few times, every other error is returned at once.
func retryCollisions(ctrl *gomock.Controller) *mocks.MockRetrier {
	r := mocks.NewMockRetrier(ctrl)
	r.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, op func() error) error {
		var err error
		for attempt := 0; attempt < 3; attempt++ {
			err = op()
			if !errors.Is(err, domain.ErrDuplicateCardNumber) && !errors.Is(err, domain.ErrDuplicateReference) {
				return err
			}
		}
		return err
	}).AnyTimes()

	return r
}

func activeCard(id, owner string, balance int64) *domain.Card {
	return &domain.Card{
		ID:             id,
		OwnerID:        owner,
		Number:         "4111111111111111",
		HolderName:     "JANE DOE",
		ExpiryDate:     domain.ExpiryFrom(testNow, 3),
		CVV:            "123",
		InitialBalance: decimal.NewFromInt(balance),
		Balance:        decimal.NewFromInt(balance),
		Status:         domain.CardStatusActive,
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}
