package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	a := NewAuthority(nil)

	require.NotEmpty(t, a.Token())
	assert.True(t, a.Validate(a.Token()))
	assert.False(t, a.Validate(""))
	assert.False(t, a.Validate("definitely-not-the-token"))
	assert.False(t, a.Validate(a.Token()[:len(a.Token())-1]))
	assert.False(t, a.Validate(a.Token()+"x"))
}

func TestTokenUniquePerAuthority(t *testing.T) {
	a := NewAuthority(nil)
	b := NewAuthority(nil)

	assert.NotEqual(t, a.Token(), b.Token())
	assert.False(t, a.Validate(b.Token()))
}

func TestIsLoopback(t *testing.T) {
	a := NewAuthority(nil)

	assert.True(t, a.IsLoopback("127.0.0.1"))
	assert.True(t, a.IsLoopback("127.8.4.2"))
	assert.True(t, a.IsLoopback("::1"))
	assert.True(t, a.IsLoopback("127.0.0.1:51234"))
	assert.True(t, a.IsLoopback("[::1]:51234"))

	assert.False(t, a.IsLoopback("192.168.1.20"))
	assert.False(t, a.IsLoopback("172.17.0.2"))
	assert.False(t, a.IsLoopback("not-an-address"))
	assert.False(t, a.IsLoopback(""))
}

func TestIsTrustedOrigin(t *testing.T) {
	a := NewAuthority([]string{"172."})

	assert.True(t, a.IsTrustedOrigin("127.0.0.1:9999"))
	assert.True(t, a.IsTrustedOrigin("::1"))
	assert.True(t, a.IsTrustedOrigin("172.17.0.2"))
	assert.True(t, a.IsTrustedOrigin("172.31.255.1:40000"))

	assert.False(t, a.IsTrustedOrigin("192.168.1.20:40000"))
	assert.False(t, a.IsTrustedOrigin("10.0.0.3"))
	assert.False(t, a.IsTrustedOrigin("garbage"))
}

func TestIsTrustedOriginNoPrefixes(t *testing.T) {
	a := NewAuthority(nil)

	// Loopback stays trusted even with an empty prefix list.
	assert.True(t, a.IsTrustedOrigin("127.0.0.1:1234"))
	assert.False(t, a.IsTrustedOrigin("172.17.0.2:1234"))
}
