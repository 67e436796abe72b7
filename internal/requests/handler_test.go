package requests

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/glowline/glowline-backend/internal/shared"
)

type fakeIdem struct {
	keys map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{keys: make(map[string]string)}
}

func (f *fakeIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	if _, ok := f.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	f.keys[key] = module
	return nil
}

func (f *fakeIdem) Release(ctx context.Context, key string) error {
	delete(f.keys, key)
	return nil
}

func newTestRouter(svc *Service, idem IdempotencyPort) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).WithIdempotency(idem)
	r := chi.NewRouter()
	r.Route("/requests", h.MountRoutes)
	return r
}

func doReview(t *testing.T, router http.Handler, actor *shared.Actor, requestID, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/requests/"+requestID+"/review", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReviewHonoursIdempotencyKey(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeExecutor{}, nil)
	router := newTestRouter(svc, newFakeIdem())
	req := submit(t, svc, 10)

	rec := doReview(t, router, managerActor(10), req.ID.String(), "review-abc", `{"decision":"APPROVE"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// the retried call is refused before the service runs again
	rec = doReview(t, router, managerActor(10), req.ID.String(), "review-abc", `{"decision":"APPROVE"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestReviewReleasesKeyOnFailure(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeExecutor{}, nil)
	idem := newFakeIdem()
	router := newTestRouter(svc, idem)
	req := submit(t, svc, 10)

	// rejection without a reason fails validation; the key must be freed
	rec := doReview(t, router, managerActor(10), req.ID.String(), "review-xyz", `{"decision":"REJECT"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, idem.keys)

	rec = doReview(t, router, managerActor(10), req.ID.String(), "review-xyz",
		`{"decision":"REJECT","rejection_reason":"budget freeze"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), fmt.Sprintf("%q", "REJECTED"))
}

func TestReviewWithoutKeySkipsStore(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeExecutor{}, nil)
	idem := newFakeIdem()
	router := newTestRouter(svc, idem)
	req := submit(t, svc, 10)

	rec := doReview(t, router, managerActor(10), req.ID.String(), "", `{"decision":"APPROVE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, idem.keys)
}
