package wallet

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHDProvisioner(t *testing.T) {
	ctx := context.Background()
	p, err := NewHDProvisioner("correct horse battery staple")
	require.NoError(t, err)

	a, err := p.GenerateAddress(ctx, "1001-conv-1")
	require.NoError(t, err)
	again, err := p.GenerateAddress(ctx, "1001-conv-1")
	require.NoError(t, err)
	other, err := p.GenerateAddress(ctx, "1002-conv-1")
	require.NoError(t, err)

	assert.Equal(t, a.Address, again.Address)
	assert.NotEqual(t, a.Address, other.Address)
	assert.Contains(t, a.Metadata, "1001-conv-1")

	raw, err := base58.Decode(a.Address)
	require.NoError(t, err)
	assert.Len(t, raw, ed25519.PublicKeySize)

	key, err := p.PrivateKey("1001-conv-1")
	require.NoError(t, err)
	assert.Equal(t, raw, []byte(key.Public().(ed25519.PublicKey)))
}

func TestHDProvisionerErrors(t *testing.T) {
	_, err := NewHDProvisioner("short")
	assert.Error(t, err)

	p, err := NewHDProvisioner("long enough secret")
	require.NoError(t, err)
	_, err = p.GenerateAddress(context.Background(), "")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.GenerateAddress(ctx, "seed")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDifferentSecretsDiverge(t *testing.T) {
	ctx := context.Background()
	a, _ := NewHDProvisioner("secret-number-one")
	b, _ := NewHDProvisioner("secret-number-two")

	wa, err := a.GenerateAddress(ctx, "seed")
	require.NoError(t, err)
	wb, err := b.GenerateAddress(ctx, "seed")
	require.NoError(t, err)
	assert.NotEqual(t, wa.Address, wb.Address)
}
