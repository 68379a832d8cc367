package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// buildInitData mirrors identity.ValidateTelegramInitData's own
// hashing so tests can construct a signed payload without a real
// Telegram client.
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

type fakeIssuer struct {
	token string
	err   error
}

func (f fakeIssuer) Issue(userID, displayName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type fakeRoomHandler struct{ called bool }

func (f *fakeRoomHandler) ServeRoom(c *gin.Context) {
	f.called = true
	c.String(http.StatusOK, "ok: "+c.Param("code"))
}

func newTestServer(issuer Issuer, botToken string) (*Server, *gin.Engine) {
	room := &fakeRoomHandler{}
	s := New(issuer, botToken, room, discardLogger())
	engine := gin.New()
	s.Register(engine)
	return s, engine
}

func TestHealthAndPing(t *testing.T) {
	_, engine := newTestServer(fakeIssuer{}, "bot-token")

	for _, tc := range []struct {
		path string
		want string
	}{
		{"/health", "OK"},
		{"/ping", "pong"},
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.path, rec.Code)
		}
		if rec.Body.String() != tc.want {
			t.Fatalf("%s: expected body %q, got %q", tc.path, tc.want, rec.Body.String())
		}
	}
}

func TestTelegramLoginSuccess(t *testing.T) {
	botToken := "test-bot-token"
	_, engine := newTestServer(fakeIssuer{token: "signed.jwt.token"}, botToken)

	initData := buildInitData(t, botToken, map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":42,"username":"alice","first_name":"Alice"}`,
	})
	body, _ := json.Marshal(telegramLoginRequest{InitData: initData})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/telegram", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp telegramLoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token != "signed.jwt.token" {
		t.Fatalf("expected issued token in response, got %q", resp.Token)
	}
}

func TestTelegramLoginRejectsTamperedInitData(t *testing.T) {
	botToken := "test-bot-token"
	_, engine := newTestServer(fakeIssuer{token: "should-not-be-issued"}, botToken)

	initData := buildInitData(t, botToken, map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":42}`,
	})
	tampered := initData + "&x=1"
	body, _ := json.Marshal(telegramLoginRequest{InitData: tampered})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/telegram", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for tampered init data, got %d", rec.Code)
	}
}

func TestTelegramLoginDisabledWithoutBotToken(t *testing.T) {
	_, engine := newTestServer(fakeIssuer{token: "x"}, "")

	body, _ := json.Marshal(telegramLoginRequest{InitData: "whatever"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/telegram", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when no bot token is configured, got %d", rec.Code)
	}
}

func TestRoomRouteDelegatesToRoomHandler(t *testing.T) {
	room := &fakeRoomHandler{}
	s := New(fakeIssuer{}, "bot-token", room, discardLogger())
	engine := gin.New()
	s.Register(engine)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ABCD", nil)
	engine.ServeHTTP(rec, req)

	if !room.called {
		t.Fatal("expected the room route to delegate to RoomHandler.ServeRoom")
	}
	if rec.Body.String() != "ok: ABCD" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}
