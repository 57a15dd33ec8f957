package ipchecker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)
	assert.True(t, checker.Disabled())

	checker, err = New("192.168.1.0/24")
	require.NoError(t, err)
	assert.False(t, checker.Disabled())

	_, err = New("not-a-cidr")
	assert.Error(t, err)
}

func TestTrusted(t *testing.T) {
	checker, err := New("192.168.1.0/24")
	require.NoError(t, err)

	assert.True(t, checker.Trusted(net.ParseIP("192.168.1.42")))
	assert.False(t, checker.Trusted(net.ParseIP("192.168.2.42")))
	assert.False(t, checker.Trusted(nil))

	disabled, err := New("")
	require.NoError(t, err)
	assert.False(t, disabled.Trusted(net.ParseIP("192.168.1.42")))
}

func TestClientIP(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	tests := []struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		want       string
		wantErr    bool
	}{
		{
			name:       "X-Real-IP wins over everything",
			realIP:     "10.1.2.3",
			forwarded:  "10.9.9.9",
			remoteAddr: "127.0.0.1:1234",
			want:       "10.1.2.3",
		},
		{
			name:       "first X-Forwarded-For hop",
			forwarded:  "10.1.2.3, 172.16.0.1",
			remoteAddr: "127.0.0.1:1234",
			want:       "10.1.2.3",
		},
		{
			name:       "falls back to RemoteAddr",
			remoteAddr: "10.1.2.3:5678",
			want:       "10.1.2.3",
		},
		{
			name:       "garbage X-Forwarded-For hop",
			forwarded:  "not-an-ip",
			remoteAddr: "127.0.0.1:1234",
			wantErr:    true,
		},
		{
			name:       "RemoteAddr without a port",
			remoteAddr: "10.1.2.3",
			wantErr:    true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
			request.RemoteAddr = test.remoteAddr
			if test.realIP != "" {
				request.Header.Set("X-Real-IP", test.realIP)
			}
			if test.forwarded != "" {
				request.Header.Set("X-Forwarded-For", test.forwarded)
			}

			ip, err := checker.ClientIP(request)
			if test.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, ip.String())
		})
	}
}
