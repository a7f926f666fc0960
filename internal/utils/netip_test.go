package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.168.1.4 ", "", "nonsense", "2001:db8::/32"})
	assert.False(t, m.IsEmpty())

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "10.1.2.3", want: true},
		{ip: "11.0.0.1", want: false},
		{ip: "192.168.1.4", want: true},
		{ip: "192.168.1.5", want: false},
		{ip: "::ffff:10.0.0.1", want: true},
		{ip: "2001:db8::1", want: true},
		{ip: "2001:db9::1", want: false},
		{ip: "not-an-ip", want: false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Allow(tt.ip), tt.ip)
	}

	assert.True(t, NewIPMatcher(nil).IsEmpty())
	assert.True(t, NewIPMatcher([]string{"bogus"}).IsEmpty())
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	assert.Equal(t, "203.0.113.9", ClientIP(r, false), "headers ignored without a trusted proxy")
	assert.Equal(t, "198.51.100.7", ClientIP(r, true))

	r.Header.Set("CF-Connecting-IP", "198.51.100.99")
	assert.Equal(t, "198.51.100.99", ClientIP(r, true))

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[2001:db8::5]:443"
	r.Header.Set("X-Real-IP", "2001:db8::6")
	assert.Equal(t, "2001:db8::5", ClientIP(r, false))
	assert.Equal(t, "2001:db8::6", ClientIP(r, true))
}
