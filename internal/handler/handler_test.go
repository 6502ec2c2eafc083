package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"Mansoor88-6/process-tracker/internal/models"
	"Mansoor88-6/process-tracker/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   models.ErrorResponse
	}{
		{"validation", &service.ValidationError{Message: "name is required"}, http.StatusBadRequest,
			models.ErrorResponse{Error: "name is required"}},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized,
			models.ErrorResponse{Error: service.ErrInvalidCredentials.Error()}},
		{"pending", &service.AccountStatusError{Status: models.UserStatusPending}, http.StatusForbidden,
			models.ErrorResponse{Error: "account is pending", Status: models.UserStatusPending}},
		{"not found", fmt.Errorf("%w: record 7", service.ErrNotFound), http.StatusNotFound,
			models.ErrorResponse{Error: "not found: record 7"}},
		{"conflict", fmt.Errorf("%w: already running", service.ErrConflict), http.StatusConflict,
			models.ErrorResponse{Error: "conflict: already running"}},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError,
			models.ErrorResponse{Error: "internal server error"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, zap.NewNop(), "test", tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.body, body)
		})
	}
}

func TestDecodeValidates(t *testing.T) {
	newReq := func(body string) *http.Request {
		return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}

	var ok models.StartRecordRequest
	require.NoError(t, decode(newReq(`{"processId":3}`), &ok, 0))
	assert.Equal(t, int64(3), ok.ProcessID)

	var validation *service.ValidationError

	var missing models.StartRecordRequest
	err := decode(newReq(`{}`), &missing, 0)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "processId is required", validation.Message)

	var unknown models.StartRecordRequest
	require.ErrorAs(t, decode(newReq(`{"processId":3,"extra":1}`), &unknown, 0), &validation)

	var empty models.StartRecordRequest
	err = decode(newReq(``), &empty, 0)
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "request body is empty", validation.Message)

	var tooBig models.StopRecordRequest
	require.ErrorAs(t, decode(newReq(`{"comment":"`+strings.Repeat("x", 64)+`"}`), &tooBig, 16), &validation)
}

func TestPathAndQueryParsing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/records?limit=5&offset=x", nil)
	r.SetPathValue("id", "12")

	id, err := pathID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	r.SetPathValue("id", "-1")
	_, err = pathID(r, "id")
	assert.Error(t, err)

	limit, err := queryInt(r, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 5, limit)

	_, err = queryInt(r, "offset", 0)
	assert.Error(t, err)

	def, err := queryInt(r, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, def)
}

func TestCallerRequiresClaims(t *testing.T) {
	rec := httptest.NewRecorder()
	_, ok := caller(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
