package logx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.45:8080", "203.0.113.0"},
		{"127.0.0.1:1", "127.0.0.1"},
		{"[2001:db8:1:2:3:4:5:6]:443", "2001:db8:1:2::"},
		{"garbage", "unknown_ip"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, anonymizeIP(tt.in))
		})
	}
}

func TestRequestLoggerIncludesRequestFields(t *testing.T) {
	buf := captureGlobal(t)

	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetRequestField(r, "user", "guest")
		w.Header().Set("Location", "../pad")
		w.WriteHeader(http.StatusSeeOther)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ep_guest/logout", nil)
	req.RemoteAddr = "198.51.100.23:4000"
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "guest", entry["user"])
	assert.Equal(t, "../pad", entry["location"])
	assert.Equal(t, "198.51.100.0", entry["remote_ip"])
	assert.EqualValues(t, http.StatusSeeOther, entry["status"])
}

func TestSetRequestFieldWithoutRequestLogger(t *testing.T) {
	buf := captureGlobal(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	SetRequestField(req, "user", "guest")
	Info("plain")

	assert.NotContains(t, buf.String(), "guest")
}

func TestCheckFieldsDropsOddPairs(t *testing.T) {
	captureGlobal(t)
	assert.Nil(t, checkFields("Info", []any{"k"}))
	assert.Len(t, checkFields("Info", []any{"k", "v"}), 2)
}
