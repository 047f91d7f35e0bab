package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyring_Validate(t *testing.T) {
	k := New("s3cret")

	assert.True(t, k.Enabled())
	assert.True(t, k.Validate("s3cret"))
	assert.False(t, k.Validate("wrong"))
	assert.False(t, k.Validate(""))
}

func TestKeyring_DisabledAllowsEverything(t *testing.T) {
	k := New("")

	assert.False(t, k.Enabled())
	assert.True(t, k.Validate(""))
	assert.True(t, k.Validate("anything"))
}

func TestKeyring_FromEnv(t *testing.T) {
	t.Setenv(EnvAPIKey, "from-env")

	k := FromEnv()
	assert.True(t, k.Enabled())
	assert.True(t, k.Validate("from-env"))
}
