package ton

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// NormalizeAddress converts a TON address to its raw workchain:hash
// form regardless of whether it arrived already-raw or in the
// user-friendly base64 form tonapi.io and most wallets display.
func NormalizeAddress(address string) (string, error) {
	if len(address) >= 66 && (address[0:2] == "0:" || address[0:3] == "-1:") {
		return address, nil
	}

	if len(address) == 48 {
		decoded, err := base64.URLEncoding.DecodeString(address)
		if err != nil {
			return "", fmt.Errorf("invalid address encoding: %w", err)
		}
		// user-friendly layout: 1 flags byte + 1 workchain byte + 32 hash bytes + 2 CRC bytes
		if len(decoded) != 36 {
			return "", errors.New("invalid address length")
		}
		workchain := int8(decoded[1])
		hash := decoded[2:34]
		return fmt.Sprintf("%d:%s", workchain, hex.EncodeToString(hash)), nil
	}

	return "", errors.New("unrecognized address format")
}
