// Package wallet provisions funding addresses for campaigns.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// Wallet is a provisioned funding address. Metadata is opaque to the pipeline
// and stored with the campaign.
type Wallet struct {
	Address  string
	Metadata string
}

// Provisioner generates a funding address for a seed.
type Provisioner interface {
	GenerateAddress(ctx context.Context, seed string) (*Wallet, error)
}

const hkdfInfo = "mentionsense/wallet"

// HDProvisioner derives ed25519 keypairs from a master secret with HKDF, so the
// same seed always yields the same address and the private key never needs to
// be stored.
type HDProvisioner struct {
	secret []byte
}

var _ Provisioner = (*HDProvisioner)(nil)

// NewHDProvisioner creates a provisioner over the master secret.
func NewHDProvisioner(secret string) (*HDProvisioner, error) {
	if len(secret) < 8 {
		return nil, errors.New("wallet secret must be at least 8 characters")
	}
	return &HDProvisioner{secret: []byte(secret)}, nil
}

type metadata struct {
	Scheme string `json:"scheme"`
	Seed   string `json:"seed"`
}

func (p *HDProvisioner) GenerateAddress(ctx context.Context, seed string) (*Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seed == "" {
		return nil, errors.New("wallet seed is required")
	}

	key, err := p.derive(seed)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(metadata{Scheme: "hkdf-sha256-ed25519", Seed: seed})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal wallet metadata")
	}
	return &Wallet{
		Address:  base58.Encode(key.Public().(ed25519.PublicKey)),
		Metadata: string(meta),
	}, nil
}

// PrivateKey re-derives the signing key of a seed, for the external payout process.
func (p *HDProvisioner) PrivateKey(seed string) (ed25519.PrivateKey, error) {
	return p.derive(seed)
}

func (p *HDProvisioner) derive(seed string) (ed25519.PrivateKey, error) {
	reader := hkdf.New(sha256.New, p.secret, []byte(seed), []byte(hkdfInfo))
	keySeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, keySeed); err != nil {
		return nil, errors.Wrap(err, "failed to derive wallet key")
	}
	return ed25519.NewKeyFromSeed(keySeed), nil
}
