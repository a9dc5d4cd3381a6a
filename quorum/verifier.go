// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/interchain/checkpoint"
)

const (
	SchemeECDSA     = "ecdsa"
	SchemeSecp256k1 = "secp256k1"
)

var (
	_ Verifier = ECDSAVerifier{}
	_ Verifier = Secp256k1Verifier{}

	_ checkpoint.Signer = (*ECDSASigner)(nil)
	_ checkpoint.Signer = (*Secp256k1Signer)(nil)

	ErrUnknownScheme = errors.New("unknown signature scheme")

	ethSignedMessagePrefix = []byte("\x19Ethereum Signed Message:\n32")
)

// Verifier recovers the identity that signed digest. ok is false for any
// signature that cannot be recovered; malformed signatures are never fatal.
type Verifier interface {
	Recover(digest common.Hash, signature []byte) (common.Address, bool)
}

// NewVerifier returns the verifier for the named scheme.
func NewVerifier(scheme string) (Verifier, error) {
	switch scheme {
	case SchemeECDSA, "":
		return ECDSAVerifier{}, nil
	case SchemeSecp256k1:
		return Secp256k1Verifier{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// EthSignedHash applies the personal-message prefix that EVM validators sign
// over checkpoint digests.
func EthSignedHash(digest common.Hash) common.Hash {
	return crypto.Keccak256Hash(ethSignedMessagePrefix, digest[:])
}

// ECDSAVerifier recovers EVM addresses from 65 byte [R || S || V] signatures
// over the prefixed digest. V may be 0/1 or 27/28.
type ECDSAVerifier struct{}

func (ECDSAVerifier) Recover(digest common.Hash, signature []byte) (common.Address, bool) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, false
	}
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if v := sig[crypto.RecoveryIDOffset]; v >= 27 {
		sig[crypto.RecoveryIDOffset] = v - 27
	}
	if sig[crypto.RecoveryIDOffset] > 1 {
		return common.Address{}, false
	}

	hash := EthSignedHash(digest)
	pub, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}

// ECDSASigner signs prefixed digests with an EVM key.
type ECDSASigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func NewECDSASigner(key *ecdsa.PrivateKey) *ECDSASigner {
	return &ECDSASigner{
		key:  key,
		addr: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *ECDSASigner) Address() common.Address {
	return s.addr
}

func (s *ECDSASigner) Sign(digest common.Hash) ([]byte, error) {
	hash := EthSignedHash(digest)
	return crypto.Sign(hash[:], s.key)
}

// Secp256k1Verifier recovers Lux short IDs from native recoverable
// secp256k1 signatures over the raw digest.
type Secp256k1Verifier struct{}

func (Secp256k1Verifier) Recover(digest common.Hash, signature []byte) (common.Address, bool) {
	if len(signature) != secp256k1.SignatureLen {
		return common.Address{}, false
	}
	pub, err := secp256k1.RecoverPublicKeyFromHash(digest[:], signature)
	if err != nil {
		return common.Address{}, false
	}
	return common.Address(pub.Address()), true
}

// Secp256k1Signer signs raw digests with a Lux secp256k1 key.
type Secp256k1Signer struct {
	key  *secp256k1.PrivateKey
	addr common.Address
}

func NewSecp256k1Signer(key *secp256k1.PrivateKey) *Secp256k1Signer {
	return &Secp256k1Signer{
		key:  key,
		addr: common.Address(key.PublicKey().Address()),
	}
}

func (s *Secp256k1Signer) Address() common.Address {
	return s.addr
}

func (s *Secp256k1Signer) Sign(digest common.Hash) ([]byte, error) {
	return s.key.SignHash(digest[:])
}
