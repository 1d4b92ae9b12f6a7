package auth

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// ErrInvalidSignature is returned when a signature does not recover to the claimed address.
var ErrInvalidSignature = errors.New("invalid signature")

// personalHash is the EIP-191 digest wallets sign for personal_sign.
func personalHash(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return h.Sum(nil)
}

// recoverSigner returns the address that produced sigHex over message.
// Both 0/1 and 27/28 recovery ids are accepted.
func recoverSigner(message, sigHex string) (common.Address, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pubKey, err := crypto.Ecrecover(personalHash(message), sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return common.BytesToAddress(crypto.Keccak256(pubKey[1:])[12:]), nil
}
