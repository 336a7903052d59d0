package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow_Burst(t *testing.T) {
	kl := New(1, 3)
	defer kl.Stop()

	// Burst of 3 is available immediately.
	assert.True(t, kl.Allow("iss-1"))
	assert.True(t, kl.Allow("iss-1"))
	assert.True(t, kl.Allow("iss-1"))
	assert.False(t, kl.Allow("iss-1"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	kl := New(1, 1)
	defer kl.Stop()

	assert.True(t, kl.Allow("iss-1"))
	assert.False(t, kl.Allow("iss-1"))

	// A different issuer still has its own bucket.
	assert.True(t, kl.Allow("iss-2"))
}

func TestStop_Idempotent(t *testing.T) {
	kl := New(1, 1)
	kl.Stop()
	kl.Stop()
}
