package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/qa-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qa-forum/backend/internal/memstore"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qa-forum/backend/internal/models"
	"github.com/emilythestrangee/qa-forum/backend/internal/voting"
)

var testSecret = []byte("handler-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	store  *memstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memstore.New()
	store.PutIdentity(voting.Identity{ID: 1, Username: "alice", Reputation: 100})
	store.PutIdentity(voting.Identity{ID: 2, Username: "bob", Reputation: 100})
	store.PutIdentity(voting.Identity{ID: 3, Username: "mallory", Banned: true})
	store.PutItem(voting.Item{Target: voting.Target{Kind: models.KindQuestion, ID: 10}, AuthorID: 2})
	store.PutItem(voting.Item{Target: voting.Target{Kind: models.KindAnswer, ID: 20}, AuthorID: 2})

	h := NewHandler(voting.NewCoordinator(store))
	r := gin.New()
	api := r.Group("/api")
	api.GET("/votes/:kind/:id", h.Vote.GetTally)
	api.GET("/users/:id/reputation", h.User.GetReputation)
	protected := api.Group("", middleware.AuthMiddleware(testSecret))
	protected.POST("/votes", h.Vote.SubmitVote)
	protected.GET("/votes/:kind/:id/me", h.Vote.GetMyVote)

	return &testEnv{router: r, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, userID int, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		token, err := middleware.IssueToken(testSecret, userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func vote(kind string, id int, dir string) map[string]any {
	return map[string]any{"itemType": kind, "itemId": id, "type": dir}
}

func TestSubmitVote_Lifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/votes", 1, vote("question", 10, "upvote"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[VoteResponse](t, w)
	assert.Equal(t, "Vote recorded", resp.Message)
	assert.Equal(t, voting.Tally{Score: 1, UpvoteCount: 1}, resp.Tally)
	require.NotNil(t, resp.UserVote)
	assert.Equal(t, models.Up, *resp.UserVote)

	w = env.do(t, http.MethodPost, "/api/votes", 1, vote("question", 10, "down"))
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[VoteResponse](t, w)
	assert.Equal(t, "Vote updated", resp.Message)
	assert.Equal(t, voting.Tally{Score: -1, DownvoteCount: 1}, resp.Tally)

	w = env.do(t, http.MethodPost, "/api/votes", 1, vote("question", 10, "downvote"))
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[VoteResponse](t, w)
	assert.Equal(t, "Vote removed", resp.Message)
	assert.Equal(t, voting.Tally{}, resp.Tally)
	assert.Nil(t, resp.UserVote)

	bob, _ := env.store.IdentitySnapshot(2)
	alice, _ := env.store.IdentitySnapshot(1)
	assert.Equal(t, 100, bob.Reputation)
	assert.Equal(t, 100, alice.Reputation)
}

func TestSubmitVote_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		user   int
		body   any
		status int
		typ    apperr.Type
	}{
		{"no token", 0, vote("question", 10, "up"), http.StatusUnauthorized, apperr.TypeUnauthenticated},
		{"malformed json", 1, `{"itemType":`, http.StatusBadRequest, apperr.TypeInvalidArgument},
		{"missing fields", 1, map[string]any{}, http.StatusBadRequest, apperr.TypeInvalidArgument},
		{"bad kind", 1, vote("comment", 10, "up"), http.StatusBadRequest, apperr.TypeInvalidArgument},
		{"bad direction", 1, vote("question", 10, "sideways"), http.StatusBadRequest, apperr.TypeInvalidArgument},
		{"negative id", 1, vote("question", -4, "up"), http.StatusBadRequest, apperr.TypeInvalidArgument},
		{"unknown item", 1, vote("answer", 99, "up"), http.StatusNotFound, apperr.TypeNotFound},
		{"unknown voter", 77, vote("answer", 20, "up"), http.StatusNotFound, apperr.TypeNotFound},
		{"banned voter", 3, vote("answer", 20, "up"), http.StatusForbidden, apperr.TypePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/votes", tt.user, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.typ, decode[apperr.Response](t, w).Type)
		})
	}
	assert.Empty(t, env.store.Votes())
}

func TestSubmitVote_InternalErrorHidesCause(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetFault(func(op memstore.Op) error {
		if op == memstore.OpSetScore {
			return assert.AnError
		}
		return nil
	})

	w := env.do(t, http.MethodPost, "/api/votes", 1, vote("answer", 20, "up"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[apperr.Response](t, w)
	assert.Equal(t, apperr.TypeInternal, resp.Type)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	assert.Empty(t, env.store.Votes())
}

func TestGetTally(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/votes", 1, vote("answer", 20, "up"))

	w := env.do(t, http.MethodGet, "/api/votes/answers/20", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"score":1,"upvoteCount":1,"downvoteCount":0}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/votes/answer/abc", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/votes/tags/1", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/votes/question/404", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMyVote(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/votes/question/10/me", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userVote":null,"score":0,"upvoteCount":0,"downvoteCount":0}`, w.Body.String())

	env.do(t, http.MethodPost, "/api/votes", 1, vote("question", 10, "down"))
	w = env.do(t, http.MethodGet, "/api/votes/question/10/me", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userVote":"down","score":-1,"upvoteCount":0,"downvoteCount":1}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/votes/question/10/me", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetReputation(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/votes", 1, vote("answer", 20, "up"))

	w := env.do(t, http.MethodGet, "/api/users/2/reputation", 0, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":2,"username":"bob","reputation":110,"is_banned":false}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/users/99/reputation", 0, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/x/reputation", 0, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
