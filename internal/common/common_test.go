package common_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/common"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestWriteAppErrorUsesCodeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	cause := errors.New("boom")
	common.WriteAppError(rec, common.NewAppError("ADD_FAILED", "could not add", http.StatusUnprocessableEntity, cause))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	body := decodeError(t, rec)
	require.Equal(t, "ADD_FAILED", body.Code)
	require.Equal(t, "could not add", body.Message)
}

func TestWriteAppErrorHidesPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	common.WriteAppError(rec, errors.New("db password leaked"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "INTERNAL", body.Code)
	require.NotContains(t, body.Message, "password")
}

func TestAppErrorUnwraps(t *testing.T) {
	cause := errors.New("root")
	err := common.NewAppError("X", "msg", http.StatusBadRequest, cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "msg", err.Error())
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded first hop", headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, remote: "1.1.1.1:80", want: "10.0.0.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.0.0.9"}, remote: "1.1.1.1:80", want: "10.0.0.9"},
		{name: "remote addr", remote: "192.168.1.5:4242", want: "192.168.1.5"},
		{name: "remote without port", remote: "192.168.1.6", want: "192.168.1.6"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, common.ClientIP(req))
		})
	}
}
