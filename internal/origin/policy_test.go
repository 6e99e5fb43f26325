package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyCheck(t *testing.T) {
	p := New("lifedeck.app")

	t.Run("missing origin is denied", func(t *testing.T) {
		assert.False(t, p.Check("").Allowed)
	})

	t.Run("configured suffix is allowed", func(t *testing.T) {
		d := p.Check("https://journal.lifedeck.app")
		assert.True(t, d.Allowed)
		assert.Equal(t, "https://journal.lifedeck.app", d.Origin)

		assert.True(t, p.Check("https://lifedeck.app").Allowed)
		assert.True(t, p.Check("https://habits.lifedeck.app:8443").Allowed)
	})

	t.Run("suffix match is on domain labels, not substrings", func(t *testing.T) {
		assert.False(t, p.Check("https://evillifedeck.app").Allowed)
		assert.False(t, p.Check("https://lifedeck.app.evil.example").Allowed)
	})

	t.Run("localhost and loopback are allowed for development", func(t *testing.T) {
		assert.True(t, p.Check("http://localhost:4000").Allowed)
		assert.True(t, p.Check("http://localhost").Allowed)
		assert.True(t, p.Check("http://127.0.0.1:5173").Allowed)
		assert.True(t, p.Check("http://[::1]:5173").Allowed)
	})

	t.Run("private network ranges are allowed for LAN development", func(t *testing.T) {
		assert.True(t, p.Check("http://192.168.1.5:4000").Allowed)
		assert.True(t, p.Check("http://10.0.0.12:3000").Allowed)
		assert.True(t, p.Check("http://172.16.4.2:3000").Allowed)
		assert.True(t, p.Check("http://172.31.255.1").Allowed)
	})

	t.Run("near-miss private ranges are denied", func(t *testing.T) {
		assert.False(t, p.Check("http://172.15.0.1").Allowed)
		assert.False(t, p.Check("http://172.32.0.1").Allowed)
		assert.False(t, p.Check("http://11.0.0.1").Allowed)
	})

	t.Run("public hostnames dressed as private addresses are denied", func(t *testing.T) {
		assert.False(t, p.Check("https://10.evil.com").Allowed)
		assert.False(t, p.Check("https://192.168.evil.com").Allowed)
		assert.False(t, p.Check("https://127.0.0.1.evil.com").Allowed)
		assert.False(t, p.Check("https://localhost.evil.com").Allowed)
	})

	t.Run("everything else is denied", func(t *testing.T) {
		assert.False(t, p.Check("https://evil.example").Allowed)
		assert.False(t, p.Check("://bad-origin").Allowed)
	})

	t.Run("empty suffix disables the production rule only", func(t *testing.T) {
		dev := New("")
		assert.False(t, dev.Check("https://journal.lifedeck.app").Allowed)
		assert.True(t, dev.Check("http://localhost:4000").Allowed)
	})
}
