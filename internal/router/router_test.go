package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"matchwell/config"
	"matchwell/internal/auth"
	"matchwell/internal/logging"
	"matchwell/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t      *testing.T
	engine *gin.Engine
	cfg    *config.Config
}

func newAPI(t *testing.T) (*apiClient, map[string]string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.RateLimit.RequestsPerMinute = 6000
	cfg.RateLimit.Burst = 1000

	db := testutil.NewTestDB(t)
	users := testutil.CreateUsers(t, db, "alice", "bob", "carol")
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ids := make(map[string]string, len(users))
	for name, u := range users {
		ids[name] = u.ID
	}
	engine, _ := Setup(ctx, cfg, db, nil, logging.Discard())
	return &apiClient{t: t, engine: engine, cfg: cfg}, ids
}

func (a *apiClient) do(method, path, userID string, body interface{}) (int, map[string]interface{}) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		tok, err := auth.GenerateAccessToken(&a.cfg.JWT, userID, "", time.Minute)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func TestInterestFlow(t *testing.T) {
	api, id := newAPI(t)

	code, body := api.do(http.MethodPost, "/api/v1/interests/send", id["alice"], map[string]string{
		"to_user_id": id["bob"],
		"message":    "  hello  ",
	})
	require.Equal(t, http.StatusCreated, code, body)
	interest := body["interest"].(map[string]interface{})
	interestID := interest["id"].(string)
	assert.Equal(t, "pending", interest["status"])
	assert.Equal(t, "hello", interest["message"])

	code, body = api.do(http.MethodPost, "/api/v1/interests/send", id["alice"], map[string]string{"to_user_id": id["bob"]})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "duplicate_interest", body["code"])

	code, body = api.do(http.MethodPost, "/api/v1/interests/send", id["bob"], map[string]string{"to_user_id": id["alice"]})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "reverse_interest_exists", body["code"])

	code, _ = api.do(http.MethodPost, "/api/v1/interests/send", id["alice"], map[string]string{"to_user_id": id["alice"]})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = api.do(http.MethodPost, "/api/v1/interests/send", id["alice"], map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = api.do(http.MethodGet, "/api/v1/interests/received", id["bob"], nil)
	require.Equal(t, http.StatusOK, code)
	received := body["interests"].([]interface{})
	require.Len(t, received, 1)
	from := received[0].(map[string]interface{})["from_user"].(map[string]interface{})
	assert.Equal(t, "alice", from["name"])

	code, body = api.do(http.MethodPut, "/api/v1/interests/"+interestID+"/accept", id["carol"], nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", body["code"])

	code, body = api.do(http.MethodPut, "/api/v1/interests/"+interestID+"/accept", id["bob"], nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "accepted", body["interest"].(map[string]interface{})["status"])

	code, body = api.do(http.MethodPut, "/api/v1/interests/"+interestID+"/reject", id["bob"], nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", body["code"])

	code, body = api.do(http.MethodGet, "/api/v1/interests/matches", id["alice"], nil)
	require.Equal(t, http.StatusOK, code)
	matches := body["matches"].([]interface{})
	require.Len(t, matches, 1)
	matched := matches[0].(map[string]interface{})["matched_user"].(map[string]interface{})
	assert.Equal(t, id["bob"], matched["id"])

	code, body = api.do(http.MethodGet, "/api/v1/interests/mutual/"+id["bob"], id["alice"], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["mutual"])

	code, body = api.do(http.MethodGet, "/api/v1/interests/limits", id["alice"], nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["active_sent"])
	assert.EqualValues(t, 1, body["accepted"])
	assert.EqualValues(t, 3, body["max_accepted"])

	code, body = api.do(http.MethodGet, "/api/v1/notifications", id["alice"], nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["unread_count"])
	notes := body["notifications"].([]interface{})
	require.Len(t, notes, 1)
	note := notes[0].(map[string]interface{})
	assert.Equal(t, "interest_accepted", note["type"])
	noteID := note["id"].(string)

	code, _ = api.do(http.MethodPut, "/api/v1/notifications/"+noteID+"/read", id["bob"], nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = api.do(http.MethodPut, "/api/v1/notifications/"+noteID+"/read", id["alice"], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["notification"].(map[string]interface{})["is_read"])

	code, body = api.do(http.MethodPut, "/api/v1/notifications/read-all", id["bob"], nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = api.do(http.MethodDelete, "/api/v1/notifications/"+noteID, id["alice"], nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodDelete, "/api/v1/notifications/"+noteID, id["alice"], nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCancelFlow(t *testing.T) {
	api, id := newAPI(t)

	code, body := api.do(http.MethodPost, "/api/v1/interests/send", id["alice"], map[string]string{"to_user_id": id["carol"]})
	require.Equal(t, http.StatusCreated, code)
	interestID := body["interest"].(map[string]interface{})["id"].(string)

	code, _ = api.do(http.MethodDelete, "/api/v1/interests/"+interestID+"/cancel", id["carol"], nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = api.do(http.MethodDelete, "/api/v1/interests/"+interestID+"/cancel", id["alice"], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Interest canceled successfully", body["message"])

	code, _ = api.do(http.MethodDelete, "/api/v1/interests/"+interestID+"/cancel", id["alice"], nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(http.MethodGet, "/api/v1/interests/sent", id["alice"], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["interests"])
}

func TestAuthAndOps(t *testing.T) {
	api, _ := newAPI(t)

	code, _ := api.do(http.MethodGet, "/api/v1/interests/received", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = api.do(http.MethodGet, "/api/v1/interests/received", "no-such-user", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
