package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/review"
)

type fakeReviews struct {
	mu         sync.Mutex
	mergeErr   error
	reviewers  []string
	lastLimit  int
	lastOffset int
	batchIDs   []int64
}

func (f *fakeReviews) ListPending(_ context.Context, limit, offset int) (review.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit, f.lastOffset = limit, offset
	return review.Page{Items: []db.QueueItemRecord{{QueueItemID: 3, NewName: "Clinton", Status: db.QueueStatusPending}}, Total: 1, Limit: limit, Offset: offset}, nil
}

func (f *fakeReviews) Merge(_ context.Context, id int64, reviewer string) (review.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewers = append(f.reviewers, reviewer)
	if f.mergeErr != nil {
		return review.Outcome{}, f.mergeErr
	}
	return review.Outcome{QueueItemID: id, Status: db.QueueStatusMerged, PersonID: 7}, nil
}

func (f *fakeReviews) Reject(_ context.Context, id int64, _ string) (review.Outcome, error) {
	return review.Outcome{QueueItemID: id, Status: db.QueueStatusNewPerson, PersonID: 12}, nil
}

func (f *fakeReviews) Skip(_ context.Context, id int64) error {
	if id == 404 {
		return fmt.Errorf("%w: %d", review.ErrNotFound, id)
	}
	return nil
}

func (f *fakeReviews) Batch(_ context.Context, action string, ids []int64, _ string) (review.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchIDs = append([]int64(nil), ids...)
	return review.BatchResult{BatchID: "batch-1", Action: action, Succeeded: len(ids)}, nil
}

type fakeUsers struct {
	mu       sync.Mutex
	user     db.AuthUser
	newHash  string
	mustFlag *bool
	logins   int
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*db.AuthUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username != f.user.Username {
		return nil, db.ErrNoRows
	}
	user := f.user
	return &user, nil
}

func (f *fakeUsers) SetUserLastLogin(_ context.Context, _ int64, loginAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	f.user.LastLoginAt = &loginAt
	return nil
}

func (f *fakeUsers) SetUserPasswordHash(_ context.Context, _ int64, hash string, mustChange bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newHash = hash
	f.mustFlag = &mustChange
	f.user.PasswordHash = hash
	f.user.MustChangePassword = mustChange
	return nil
}

func newFakeUsers(t *testing.T, mustChange bool) *fakeUsers {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &fakeUsers{user: db.AuthUser{UserID: 1, Username: "editor", PasswordHash: string(hash), MustChangePassword: mustChange}}
}

func doRequest(t *testing.T, srv *Server, method, path, body string, authed bool) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.SetBasicAuth("Editor", "correct horse")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp jsendResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestReviewRoutesRequireBasicAuth(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeReviews{}, newFakeUsers(t, false), zerolog.Nop(), Options{})

	rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/review/queue", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected basic auth challenge header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/review/queue", nil)
	req.SetBasicAuth("editor", "wrong password")
	wrong := httptest.NewRecorder()
	srv.Handler().ServeHTTP(wrong, req)
	if wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", wrong.Code)
	}

	health, resp := doRequest(t, srv, http.MethodGet, "/api/v1/health", "", false)
	if health.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("health must stay public, got %d %+v", health.Code, resp)
	}
	if resp.RequestID == "" || resp.RequestID != health.Header().Get(echo.HeaderXRequestID) {
		t.Fatalf("expected request id echoed in envelope, got %q", resp.RequestID)
	}
}

func TestListQueuePassesPaging(t *testing.T) {
	t.Parallel()

	reviews := &fakeReviews{}
	users := newFakeUsers(t, false)
	srv := NewServer(reviews, users, zerolog.Nop(), Options{})

	rec, resp := doRequest(t, srv, http.MethodGet, "/api/v1/review/queue?limit=10&offset=20", "", true)
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if reviews.lastLimit != 10 || reviews.lastOffset != 20 {
		t.Fatalf("unexpected paging %d/%d", reviews.lastLimit, reviews.lastOffset)
	}
	if users.logins != 1 {
		t.Fatalf("expected last login recorded once, got %d", users.logins)
	}

	bad, _ := doRequest(t, srv, http.MethodGet, "/api/v1/review/queue?limit=0", "", true)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for limit=0, got %d", bad.Code)
	}
}

func TestMergeRecordsReviewerAndMapsErrors(t *testing.T) {
	t.Parallel()

	reviews := &fakeReviews{}
	srv := NewServer(reviews, newFakeUsers(t, false), zerolog.Nop(), Options{})

	rec, resp := doRequest(t, srv, http.MethodPost, "/api/v1/review/queue/3/merge", "", true)
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("unexpected merge response %d %s", rec.Code, rec.Body.String())
	}
	if len(reviews.reviewers) != 1 || reviews.reviewers[0] != "editor" {
		t.Fatalf("expected reviewer username, got %v", reviews.reviewers)
	}

	reviews.mergeErr = fmt.Errorf("%w: item 3 is merged", review.ErrConflict)
	conflict, resp := doRequest(t, srv, http.MethodPost, "/api/v1/review/queue/3/merge", "", true)
	if conflict.Code != http.StatusConflict || resp.Status != "fail" {
		t.Fatalf("expected 409, got %d %s", conflict.Code, conflict.Body.String())
	}

	badID, _ := doRequest(t, srv, http.MethodPost, "/api/v1/review/queue/abc/merge", "", true)
	if badID.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", badID.Code)
	}

	missing, _ := doRequest(t, srv, http.MethodPost, "/api/v1/review/queue/404/skip", "", true)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", missing.Code)
	}
}

func TestBatchValidatesAction(t *testing.T) {
	t.Parallel()

	reviews := &fakeReviews{}
	srv := NewServer(reviews, newFakeUsers(t, false), zerolog.Nop(), Options{})

	bad, _ := doRequest(t, srv, http.MethodPost, "/api/v1/review/batch", `{"action":"skip","ids":[1]}`, true)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for skip batch, got %d", bad.Code)
	}
	empty, _ := doRequest(t, srv, http.MethodPost, "/api/v1/review/batch", `{"action":"merge","ids":[]}`, true)
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids, got %d", empty.Code)
	}

	ok, resp := doRequest(t, srv, http.MethodPost, "/api/v1/review/batch", `{"action":"Reject","ids":[4,5]}`, true)
	if ok.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("unexpected batch response %d %s", ok.Code, ok.Body.String())
	}
	if len(reviews.batchIDs) != 2 {
		t.Fatalf("expected ids forwarded, got %v", reviews.batchIDs)
	}
}

func TestBootstrapPasswordMustChangeBeforeReview(t *testing.T) {
	t.Parallel()

	users := newFakeUsers(t, true)
	srv := NewServer(&fakeReviews{}, users, zerolog.Nop(), Options{})

	blocked, _ := doRequest(t, srv, http.MethodGet, "/api/v1/review/queue", "", true)
	if blocked.Code != http.StatusForbidden {
		t.Fatalf("expected 403 before password change, got %d", blocked.Code)
	}

	short, _ := doRequest(t, srv, http.MethodPut, "/api/v1/me/password", `{"current_password":"correct horse","new_password":"short"}`, true)
	if short.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", short.Code)
	}

	changed, resp := doRequest(t, srv, http.MethodPut, "/api/v1/me/password", `{"current_password":"correct horse","new_password":"battery staple"}`, true)
	if changed.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("unexpected password change response %d %s", changed.Code, changed.Body.String())
	}
	if users.mustFlag == nil || *users.mustFlag || users.newHash == "" {
		t.Fatalf("expected new hash with must_change cleared")
	}
	if bcrypt.CompareHashAndPassword([]byte(users.newHash), []byte("battery staple")) != nil {
		t.Fatalf("stored hash does not match new password")
	}
}
