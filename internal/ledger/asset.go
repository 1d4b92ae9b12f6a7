package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const nativeName = "native"

// Asset identifies what a ledger entry counts: native currency when Token is
// the zero address, otherwise the token contract at Token.
type Asset struct {
	Token common.Address
}

// Native is the chain's base currency.
var Native = Asset{}

// TokenAsset returns the asset for the token contract at addr.
func TokenAsset(addr common.Address) Asset {
	return Asset{Token: addr}
}

func (a Asset) IsNative() bool {
	return a.Token == (common.Address{})
}

func (a Asset) String() string {
	if a.IsNative() {
		return nativeName
	}
	return a.Token.Hex()
}

// ParseAsset accepts "native" (case-insensitive) or a hex token address.
func ParseAsset(s string) (Asset, error) {
	if strings.EqualFold(s, nativeName) {
		return Native, nil
	}
	if !common.IsHexAddress(s) {
		return Asset{}, fmt.Errorf("invalid asset %q", s)
	}
	return TokenAsset(common.HexToAddress(s)), nil
}
