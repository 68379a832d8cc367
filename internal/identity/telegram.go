package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Telegram init_data validation failures, returned by
// ValidateTelegramInitData so callers can tell a malformed payload
// from a tampered signature from a stale login without string
// matching.
var (
	ErrMalformedInitData = errors.New("identity: malformed init data")
	ErrMissingHash       = errors.New("identity: init data missing hash")
	ErrInvalidSignature  = errors.New("identity: init data signature mismatch")
	ErrMissingAuthDate   = errors.New("identity: init data missing auth_date")
	ErrStaleAuthDate     = errors.New("identity: init data auth_date out of range")
)

// ValidateTelegramInitData checks the HMAC over a Telegram WebApp
// init_data payload and rejects anything with a stale auth_date,
// exactly as the original product's login widget did. It is the one
// out-of-band step that precedes minting a bearer token with Issue:
// httpapi's login route calls this, then Issue, so every Session
// still authenticates with a plain bearer token regardless of how the
// player originally signed in.
func ValidateTelegramInitData(initData, botToken string) (url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrMalformedInitData
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	var dataCheck []string
	for k, v := range values {
		dataCheck = append(dataCheck, k+"="+strings.Join(v, ""))
	}
	sort.Strings(dataCheck)
	dataString := strings.Join(dataCheck, "\n")

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))
	secret := secretKey.Sum(nil)
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(dataString))

	calculated := h.Sum(nil)
	provided, err := hex.DecodeString(hash)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if !hmac.Equal(calculated, provided) {
		return nil, ErrInvalidSignature
	}

	authDateStr := values.Get("auth_date")
	if authDateStr == "" {
		return nil, ErrMissingAuthDate
	}
	authDate, err := strconv.ParseInt(authDateStr, 10, 64)
	if err != nil {
		return nil, ErrMissingAuthDate
	}

	now := time.Now().Unix()
	if now-authDate > 3600 || authDate-now > 300 {
		return nil, ErrStaleAuthDate
	}

	return values, nil
}
