package receipts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Nhan-Lam-SmartCare/MotocarePro-demo-sub000/internal/shared"
)

type fakeIdempotency struct {
	seen map[string]bool
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{seen: map[string]bool{}}
}

func (f *fakeIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	k := module + ":" + key
	if f.seen[k] {
		return shared.ErrIdempotencyConflict
	}
	f.seen[k] = true
	return nil
}

const createBody = `{"supplier_id":1,"branch_id":1,"lines":[{"part_id":10,"part_name":"Lọc gió","quantity":4,"unit_price":45000}]}`

func postCreate(h *Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader(createBody))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}
	rr := httptest.NewRecorder()
	h.create(rr, req)
	return rr
}

func TestCreateReplayedIdempotencyKeyDoesNotPostTwice(t *testing.T) {
	repo := newMemoryRepo()
	h := NewHandler(newTestService(repo, nil), nil, newFakeIdempotency())

	rr := postCreate(h, "abc-123")
	require.Equal(t, http.StatusCreated, rr.Code)
	require.EqualValues(t, 4, repo.stocks[stockKey{1, 10}])
	require.Len(t, repo.receipts, 1)

	// the retry is refused before the service runs, so stock stays put
	rr = postCreate(h, "abc-123")
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "đã được xử lý")
	require.EqualValues(t, 4, repo.stocks[stockKey{1, 10}])
	require.Len(t, repo.receipts, 1)
}

func TestCreateDistinctIdempotencyKeysBothApply(t *testing.T) {
	repo := newMemoryRepo()
	h := NewHandler(newTestService(repo, nil), nil, newFakeIdempotency())

	require.Equal(t, http.StatusCreated, postCreate(h, "key-1").Code)
	require.Equal(t, http.StatusCreated, postCreate(h, "key-2").Code)
	require.EqualValues(t, 8, repo.stocks[stockKey{1, 10}])
	require.Len(t, repo.receipts, 2)
}

func TestCreateWithoutKeySkipsIdempotencyCheck(t *testing.T) {
	repo := newMemoryRepo()
	idem := newFakeIdempotency()
	h := NewHandler(newTestService(repo, nil), nil, idem)

	require.Equal(t, http.StatusCreated, postCreate(h, "").Code)
	require.Empty(t, idem.seen)
}
