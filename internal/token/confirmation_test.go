package token

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/office_hours/internal/clock"
	"github.com/Freeeeeet/office_hours/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *clock.Mock) {
	clk := clock.NewMock(start)
	return NewService([]byte("test-secret"), DefaultTTL, clk), clk
}

func TestIssueCarriesClaims(t *testing.T) {
	svc, _ := newTestService()

	issued, err := svc.Issue(7, 1, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.JTI)
	assert.Equal(t, start.Add(48*time.Hour), issued.ExpiresAt)

	claims, err := svc.Decode(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.BookingID)
	assert.Equal(t, int64(1), claims.ProfessorID)
	assert.Equal(t, int64(2), claims.StudentID)
	assert.Equal(t, issued.JTI, claims.JTI())
	assert.True(t, issued.ExpiresAt.Equal(claims.Expiry()))
}

func TestIssueGeneratesUniqueJTI(t *testing.T) {
	svc, _ := newTestService()

	first, err := svc.Issue(1, 1, 2)
	require.NoError(t, err)
	second, err := svc.Issue(1, 1, 2)
	require.NoError(t, err)

	assert.NotEqual(t, first.JTI, second.JTI)
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	svc, _ := newTestService()
	issued, err := svc.Issue(7, 1, 2)
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)

	other, err := svc.Issue(8, 1, 2)
	require.NoError(t, err)
	otherParts := strings.Split(other.Token, ".")

	// чужая полезная нагрузка с исходной подписью
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]
	_, err = svc.Decode(forged)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.Decode("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	svc, clk := newTestService()
	foreign := NewService([]byte("another-secret"), DefaultTTL, clk)

	issued, err := foreign.Issue(7, 1, 2)
	require.NoError(t, err)

	_, err = svc.Decode(issued.Token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateExpired(t *testing.T) {
	svc, clk := newTestService()
	ledger := memory.NewStore().Repositories().UsedTokens
	ctx := context.Background()

	issued, err := svc.Issue(7, 1, 2)
	require.NoError(t, err)

	clk.Advance(48 * time.Hour)
	_, err = svc.Validate(ctx, ledger, issued.Token)
	require.NoError(t, err, "token is valid up to its expiry instant")

	clk.Advance(time.Second)
	_, err = svc.Validate(ctx, ledger, issued.Token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidateAfterMarkUsed(t *testing.T) {
	svc, _ := newTestService()
	ledger := memory.NewStore().Repositories().UsedTokens
	ctx := context.Background()

	issued, err := svc.Issue(7, 1, 2)
	require.NoError(t, err)

	claims, err := svc.Validate(ctx, ledger, issued.Token)
	require.NoError(t, err)
	require.NoError(t, svc.MarkUsed(ctx, ledger, claims.JTI(), claims.BookingID))

	_, err = svc.Validate(ctx, ledger, issued.Token)
	assert.ErrorIs(t, err, ErrAlreadyUsed)

	err = svc.MarkUsed(ctx, ledger, claims.JTI(), claims.BookingID)
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestMarkUsedConcurrentSingleWinner(t *testing.T) {
	svc, _ := newTestService()
	ledger := memory.NewStore().Repositories().UsedTokens
	ctx := context.Background()

	const racers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.MarkUsed(ctx, ledger, "jti-1", 7); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
