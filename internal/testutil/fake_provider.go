package testutil

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// Paths served by FakeProvider, mirroring Canva's layout
const (
	AuthorizePath  = "/api/oauth/authorize"
	TokenPath      = "/rest/v1/oauth/token"
	IntrospectPath = "/rest/v1/oauth/introspect"
	RevokePath     = "/rest/v1/oauth/revoke"
)

// FakeProvider is an httptest server implementing Canva's token,
// introspection and revocation endpoints. It enforces client credentials
// in the form body and S256 PKCE on code exchange.
type FakeProvider struct {
	Server *httptest.Server

	expiresIn     int64
	rotateRefresh bool
	tokenDelay    time.Duration

	mu            sync.Mutex
	codes         map[string]string // code -> challenge
	accessTokens  map[string]time.Time
	refreshTokens map[string]bool
	revoked       map[string]bool
	forced        map[string]forcedResponse
	lastForms     map[string]url.Values

	seq             atomic.Int64
	exchangeCount   atomic.Int64
	refreshCount    atomic.Int64
	introspectCount atomic.Int64
	revokeCount     atomic.Int64
}

type forcedResponse struct {
	status int
	body   string
}

// FakeProviderOption configures a FakeProvider before it starts serving
type FakeProviderOption func(*FakeProvider)

// WithExpiresIn sets the lifetime reported for new access tokens; negative omits expires_in
func WithExpiresIn(seconds int64) FakeProviderOption {
	return func(p *FakeProvider) { p.expiresIn = seconds }
}

// WithRefreshRotation issues a new refresh token on every refresh
func WithRefreshRotation() FakeProviderOption {
	return func(p *FakeProvider) { p.rotateRefresh = true }
}

// WithTokenDelay delays token endpoint responses
func WithTokenDelay(d time.Duration) FakeProviderOption {
	return func(p *FakeProvider) { p.tokenDelay = d }
}

// NewFakeProvider starts a fake provider. Callers must Close it.
func NewFakeProvider(opts ...FakeProviderOption) *FakeProvider {
	p := &FakeProvider{
		expiresIn:     3600,
		codes:         make(map[string]string),
		accessTokens:  make(map[string]time.Time),
		refreshTokens: make(map[string]bool),
		revoked:       make(map[string]bool),
		forced:        make(map[string]forcedResponse),
		lastForms:     make(map[string]url.Values),
	}
	for _, opt := range opts {
		opt(p)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenPath, p.handleToken)
	mux.HandleFunc(IntrospectPath, p.handleIntrospect)
	mux.HandleFunc(RevokePath, p.handleRevoke)
	p.Server = httptest.NewServer(mux)
	return p
}

// Close shuts the server down
func (p *FakeProvider) Close() {
	p.Server.Close()
}

// AuthURL returns the authorization endpoint URL
func (p *FakeProvider) AuthURL() string { return p.Server.URL + AuthorizePath }

// TokenURL returns the token endpoint URL
func (p *FakeProvider) TokenURL() string { return p.Server.URL + TokenPath }

// IntrospectURL returns the introspection endpoint URL
func (p *FakeProvider) IntrospectURL() string { return p.Server.URL + IntrospectPath }

// RevokeURL returns the revocation endpoint URL
func (p *FakeProvider) RevokeURL() string { return p.Server.URL + RevokePath }

// RegisterCode makes code redeemable with a verifier matching challenge
func (p *FakeProvider) RegisterCode(code, challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = challenge
}

// SeedRefreshToken makes rt accepted by the refresh grant
func (p *FakeProvider) SeedRefreshToken(rt string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshTokens[rt] = true
}

// SeedAccessToken makes at known to introspection with the given expiry
func (p *FakeProvider) SeedAccessToken(at string, expiresAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessTokens[at] = expiresAt
}

// ForceResponse makes every request to path answer with status and body
func (p *FakeProvider) ForceResponse(path string, status int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forced[path] = forcedResponse{status: status, body: body}
}

// ClearForcedResponses restores normal behaviour
func (p *FakeProvider) ClearForcedResponses() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forced = make(map[string]forcedResponse)
}

// LastForm returns the form of the most recent request to path
func (p *FakeProvider) LastForm(path string) url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastForms[path]
}

// IsRevoked reports whether token was revoked
func (p *FakeProvider) IsRevoked(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revoked[token]
}

// ExchangeCount returns the number of authorization_code grants served
func (p *FakeProvider) ExchangeCount() int64 { return p.exchangeCount.Load() }

// RefreshCount returns the number of refresh_token grants served
func (p *FakeProvider) RefreshCount() int64 { return p.refreshCount.Load() }

// IntrospectCount returns the number of introspection requests served
func (p *FakeProvider) IntrospectCount() int64 { return p.introspectCount.Load() }

// RevokeCount returns the number of revocation requests served
func (p *FakeProvider) RevokeCount() int64 { return p.revokeCount.Load() }

// prepare parses the form, records it and applies forced responses and client
// authentication. It returns false if the response was already written.
func (p *FakeProvider) prepare(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "POST required")
		return false
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}

	p.mu.Lock()
	p.lastForms[r.URL.Path] = r.PostForm
	forced, isForced := p.forced[r.URL.Path]
	p.mu.Unlock()

	if isForced {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(forced.status)
		_, _ = w.Write([]byte(forced.body))
		return false
	}

	if r.PostForm.Get("client_id") != TestClientID || r.PostForm.Get("client_secret") != TestClientSecret {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return false
	}
	return true
}

func (p *FakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	if p.tokenDelay > 0 {
		time.Sleep(p.tokenDelay)
	}
	if !p.prepare(w, r) {
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.exchangeCount.Add(1)
		p.handleExchange(w, r.PostForm)
	case "refresh_token":
		p.refreshCount.Add(1)
		p.handleRefresh(w, r.PostForm)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "")
	}
}

func (p *FakeProvider) handleExchange(w http.ResponseWriter, form url.Values) {
	code := form.Get("code")
	verifier := form.Get("code_verifier")

	p.mu.Lock()
	challenge, ok := p.codes[code]
	if ok {
		delete(p.codes, code)
	}
	p.mu.Unlock()

	if !ok {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "unknown authorization code")
		return
	}
	if form.Get("redirect_uri") != TestRedirectURI {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch")
		return
	}
	hash := sha256.Sum256([]byte(verifier))
	if base64.RawURLEncoding.EncodeToString(hash[:]) != challenge {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match code_challenge")
		return
	}

	p.writeTokens(w, p.newRefreshToken(), "design:meta:read asset:read")
}

func (p *FakeProvider) handleRefresh(w http.ResponseWriter, form url.Values) {
	rt := form.Get("refresh_token")

	p.mu.Lock()
	known := p.refreshTokens[rt] && !p.revoked[rt]
	if known && p.rotateRefresh {
		delete(p.refreshTokens, rt)
	}
	p.mu.Unlock()

	if !known {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "refresh token is invalid")
		return
	}

	next := ""
	if p.rotateRefresh {
		next = p.newRefreshToken()
	}
	p.writeTokens(w, next, "")
}

func (p *FakeProvider) newRefreshToken() string {
	rt := fmt.Sprintf("refresh-%d-%s", p.seq.Add(1), GenerateRandomString(8))
	p.mu.Lock()
	p.refreshTokens[rt] = true
	p.mu.Unlock()
	return rt
}

func (p *FakeProvider) writeTokens(w http.ResponseWriter, refreshToken, scope string) {
	at := fmt.Sprintf("access-%d-%s", p.seq.Add(1), GenerateRandomString(8))

	resp := map[string]any{
		"access_token": at,
		"token_type":   "Bearer",
	}
	var expiresAt time.Time
	if p.expiresIn >= 0 {
		resp["expires_in"] = p.expiresIn
		expiresAt = time.Now().Add(time.Duration(p.expiresIn) * time.Second)
	}
	if refreshToken != "" {
		resp["refresh_token"] = refreshToken
	}
	if scope != "" {
		resp["scope"] = scope
	}

	p.mu.Lock()
	p.accessTokens[at] = expiresAt
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (p *FakeProvider) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	p.introspectCount.Add(1)
	if !p.prepare(w, r) {
		return
	}

	token := r.PostForm.Get("token")
	p.mu.Lock()
	expiresAt, known := p.accessTokens[token]
	revoked := p.revoked[token]
	p.mu.Unlock()

	active := known && !revoked && (expiresAt.IsZero() || time.Now().Before(expiresAt))
	if !active {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}

	resp := map[string]any{
		"active":    true,
		"scope":     "design:meta:read asset:read",
		"client_id": TestClientID,
		"username":  "test-user",
	}
	if !expiresAt.IsZero() {
		resp["exp"] = expiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (p *FakeProvider) handleRevoke(w http.ResponseWriter, r *http.Request) {
	p.revokeCount.Add(1)
	if !p.prepare(w, r) {
		return
	}

	// RFC 7009: unknown tokens still get 200
	p.mu.Lock()
	p.revoked[r.PostForm.Get("token")] = true
	p.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	body := map[string]string{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	writeJSON(w, status, body)
}
