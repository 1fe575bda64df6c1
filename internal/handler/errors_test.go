package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"matchwell/internal/domain"
	"matchwell/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{domain.E(domain.KindNotFound, "Interest not found"), http.StatusNotFound, `{"error":"Interest not found","code":"not_found"}`},
		{domain.E(domain.KindCapacityExceeded, "full"), http.StatusForbidden, `{"error":"full","code":"capacity_exceeded"}`},
		{domain.E(domain.KindInvalidTarget, "self"), http.StatusBadRequest, `{"error":"self","code":"invalid_target"}`},
		{domain.ErrConflict, http.StatusConflict, `{"error":"concurrent update conflict","code":"conflict"}`},
		{domain.Unavailable("get interest", errors.New("dial tcp: refused")), http.StatusServiceUnavailable,
			`{"error":"service unavailable","code":"unavailable"}`},
		{errors.New("raw"), http.StatusServiceUnavailable, `{"error":"service unavailable","code":"unavailable"}`},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, logging.Discard(), tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.JSONEq(t, tc.body, w.Body.String())
	}
}
