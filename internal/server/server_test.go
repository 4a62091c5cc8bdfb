package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callerwork/callerd/internal/engine"
	"github.com/callerwork/callerd/internal/telephony"
)

type fakeCallService struct {
	startErr    error
	startedWith string
	digits      string
	streamed    chan struct{}
}

func (f *fakeCallService) StartCall(_ context.Context, phone string) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.startedWith = phone
	return "CA123", nil
}

func (f *fakeCallService) HandleAnswer(phone string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><Response><Gather/></Response>`
}

func (f *fakeCallService) HandleDigits(phone, digits string) string {
	f.digits = digits
	return `<?xml version="1.0" encoding="UTF-8"?><Response><Connect/></Response>`
}

func (f *fakeCallService) HandleStream(ws *websocket.Conn) {
	if f.streamed != nil {
		close(f.streamed)
	}
}

func newTestServer(svc *fakeCallService) *httptest.Server {
	return httptest.NewServer(New(svc, zerolog.Nop()).Handler())
}

func TestTriggerCall(t *testing.T) {
	svc := &fakeCallService{}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/call", "application/json", strings.NewReader(`{"phone": "+919876543210"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "+919876543210", svc.startedWith)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "CA123", body["call_sid"])
}

func TestTriggerCall_MissingPhone(t *testing.T) {
	srv := newTestServer(&fakeCallService{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/call", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTriggerCall_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"auth failure", &telephony.APIError{Code: 20003, Message: "Authenticate", Status: 401}, http.StatusBadGateway},
		{"invalid destination", &telephony.APIError{Code: 21211, Message: "Invalid number", Status: 400}, http.StatusBadRequest},
		{"unverified destination", &telephony.APIError{Code: 21608, Message: "Unverified", Status: 400}, http.StatusBadRequest},
		{"missing phone", engine.ErrMissingPhone, http.StatusBadRequest},
		{"unknown provider failure", assertableErr("socket timeout"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeCallService{startErr: tc.err})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/call", "application/json", strings.NewReader(`{"phone": "+1"}`))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }

func TestVoiceWebhookReturnsXML(t *testing.T) {
	srv := newTestServer(&fakeCallService{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/voice?phone=919876543210", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/xml")
}

func TestSelectWebhookPassesDigits(t *testing.T) {
	svc := &fakeCallService{}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/select?phone=919876543210", "application/x-www-form-urlencoded", strings.NewReader("Digits=2"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", svc.digits)
}

func TestMediaUpgrades(t *testing.T) {
	svc := &fakeCallService{streamed: make(chan struct{})}
	srv := newTestServer(svc)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	select {
	case <-svc.streamed:
	case <-time.After(time.Second):
		t.Fatal("stream handler never invoked")
	}
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(&fakeCallService{})
	defer srv.Close()

	for _, path := range []string{"/", "/health", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
