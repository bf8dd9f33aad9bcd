package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirect(t *testing.T) {
	d, err := Dialer("")
	require.NoError(t, err)
	assert.Nil(t, d)

	hc, err := NewHTTPClient("")
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, hc.Timeout)

	ws, err := NewWSDialer("")
	require.NoError(t, err)
	assert.Nil(t, ws.NetDialContext)
}

func TestSocks(t *testing.T) {
	d, err := Dialer("127.0.0.1:1080")
	require.NoError(t, err)
	assert.NotNil(t, d)

	ws, err := NewWSDialer("127.0.0.1:1080")
	require.NoError(t, err)
	assert.NotNil(t, ws.NetDialContext)
	u, err := ws.Proxy(nil)
	assert.NoError(t, err)
	assert.Nil(t, u)
}
