package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

const secretValue = "JagALLazU0i2ld9WW4zTO4kaG0lkvP8Y5sSO206ZwxNF4E1y"

func TestAccessToken_AuthorizationHeader(t *testing.T) {
	token := NewAccessToken(secretValue)

	if got := token.AuthorizationHeader(); got != "Bearer "+secretValue {
		t.Errorf("AuthorizationHeader() = %q", got)
	}
	if token.Value() != secretValue {
		t.Errorf("Value() = %q", token.Value())
	}
	if token.IsZero() {
		t.Error("IsZero() = true for non-empty token")
	}
	if !(AccessToken{}).IsZero() {
		t.Error("IsZero() = false for empty token")
	}
}

func TestAccessToken_NeverFormatsValue(t *testing.T) {
	token := NewAccessToken(secretValue)

	jsonOut, err := json.Marshal(struct{ Token AccessToken }{token})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	var logBuf bytes.Buffer
	slog.New(slog.NewTextHandler(&logBuf, nil)).Info("token", "token", token)

	outputs := map[string]string{
		"%v":   fmt.Sprintf("%v", token),
		"%s":   fmt.Sprintf("%s", token),
		"%+v":  fmt.Sprintf("%+v", token),
		"%#v":  fmt.Sprintf("%#v", token),
		"json": string(jsonOut),
		"slog": logBuf.String(),
	}
	for name, out := range outputs {
		if strings.Contains(out, secretValue) {
			t.Errorf("%s output leaked the token: %s", name, out)
		}
		if !strings.Contains(out, redacted) {
			t.Errorf("%s output = %q, want %s", name, out, redacted)
		}
	}
}
