package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowlistPolicy(t *testing.T) {
	policy := NewAllowlistPolicy([]string{"Ops@Example.org", "  admin@example.org  ", ""})

	t.Run("ExactMatch", func(t *testing.T) {
		assert.True(t, policy.IsPrivileged("ops@example.org"))
		assert.True(t, policy.IsPrivileged("admin@example.org"))
	})

	t.Run("CaseAndWhitespaceInsensitive", func(t *testing.T) {
		assert.True(t, policy.IsPrivileged("OPS@EXAMPLE.ORG"))
		assert.True(t, policy.IsPrivileged("  admin@example.org\t"))
	})

	t.Run("UnknownIdentity", func(t *testing.T) {
		assert.False(t, policy.IsPrivileged("guest@example.org"))
	})

	t.Run("EmptyIdentityNeverPrivileged", func(t *testing.T) {
		assert.False(t, policy.IsPrivileged(""))
		assert.False(t, policy.IsPrivileged("   "))
	})

	t.Run("EmptyAllowlist", func(t *testing.T) {
		empty := NewAllowlistPolicy(nil)
		assert.False(t, empty.IsPrivileged("ops@example.org"))
	})
}
