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
	"testing"
	"time"
)

// buildInitData mirrors ValidateTelegramInitData's own hashing so
// tests can construct a signed payload without a real Telegram client.
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	var parts []string
	for k, v := range fields {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	dataString := strings.Join(parts, "\n")

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))
	secret := secretKey.Sum(nil)

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(dataString))
	hash := hex.EncodeToString(h.Sum(nil))

	vals := url.Values{}
	for k, v := range fields {
		vals.Add(k, v)
	}
	vals.Add("hash", hash)
	return vals.Encode()
}

func TestValidateTelegramInitDataValid(t *testing.T) {
	botToken := "test-bot-token"
	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":1,"username":"u","first_name":"F"}`,
	}
	initData := buildInitData(t, botToken, fields)

	vals, err := ValidateTelegramInitData(initData, botToken)
	if err != nil {
		t.Fatalf("expected valid init data, got %v", err)
	}
	if vals.Get("user") == "" {
		t.Fatal("expected user field in values")
	}
}

func TestValidateTelegramInitDataTampered(t *testing.T) {
	botToken := "test-bot-token"
	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":1,"username":"u","first_name":"F"}`,
	}
	initData := buildInitData(t, botToken, fields)
	tampered := initData + "&x=1"

	if _, err := ValidateTelegramInitData(tampered, botToken); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for tampered init data, got %v", err)
	}
}

func TestValidateTelegramInitDataStale(t *testing.T) {
	botToken := "test-bot-token"
	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Add(-2*time.Hour).Unix(), 10),
		"user":      `{"id":1}`,
	}
	initData := buildInitData(t, botToken, fields)

	if _, err := ValidateTelegramInitData(initData, botToken); !errors.Is(err, ErrStaleAuthDate) {
		t.Fatalf("expected ErrStaleAuthDate for a stale auth_date, got %v", err)
	}
}

func TestJWTIdentityIssueAndResolve(t *testing.T) {
	idp := New("test-secret", time.Hour)

	token, err := idp.Issue("42", "Alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	userID, name, err := idp.Resolve(nil, token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if userID != "42" || name != "Alice" {
		t.Fatalf("expected (42, Alice), got (%s, %s)", userID, name)
	}
}

func TestJWTIdentityRejectsGarbage(t *testing.T) {
	idp := New("test-secret", time.Hour)
	if _, _, err := idp.Resolve(nil, "not-a-token"); err == nil {
		t.Fatal("expected an error for a malformed token")
	}
}
