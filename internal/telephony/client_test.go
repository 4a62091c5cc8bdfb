package telephony

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srvURL string) *Client {
	return NewClient(Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		FromNumber: "+15550001111",
		BaseURL:    srvURL,
	}, zerolog.Nop())
}

func TestPlaceCall(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotURL string
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotFrom = r.PostForm.Get("From")
		gotURL = r.PostForm.Get("Url")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid": "CA999", "to": "+919876543210", "status": "queued"}`))
	}))
	defer srv.Close()

	sid, err := testClient(srv.URL).PlaceCall(context.Background(), "+919876543210", "https://example.com/voice?phone=919876543210")
	require.NoError(t, err)

	assert.Equal(t, "CA999", sid)
	assert.Equal(t, "/Accounts/AC123/Calls.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "token", gotPass)
	assert.Equal(t, "+919876543210", gotTo)
	assert.Equal(t, "+15550001111", gotFrom)
	assert.Equal(t, "https://example.com/voice?phone=919876543210", gotURL)
}

func TestPlaceCall_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{
			name:     "bad credentials",
			status:   http.StatusUnauthorized,
			body:     `{"code": 20003, "message": "Authenticate", "status": 401}`,
			sentinel: ErrAuth,
		},
		{
			name:     "malformed number",
			status:   http.StatusBadRequest,
			body:     `{"code": 21211, "message": "Invalid 'To' Phone Number", "status": 400}`,
			sentinel: ErrInvalidDestination,
		},
		{
			name:     "trial account restriction",
			status:   http.StatusBadRequest,
			body:     `{"code": 21608, "message": "The number is unverified", "status": 400}`,
			sentinel: ErrUnverifiedDestination,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).PlaceCall(context.Background(), "+1", "https://example.com/voice")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.NotZero(t, apiErr.Code)
		})
	}
}

func TestPlaceCall_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>gateway timeout</html>", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).PlaceCall(context.Background(), "+1", "https://example.com/voice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuth)
}
