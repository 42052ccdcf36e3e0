package canva

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/giantswarm/canva-connect/auth"
	"github.com/giantswarm/canva-connect/internal/testutil"
	"github.com/giantswarm/canva-connect/ratelimit"
	"github.com/giantswarm/canva-connect/security"
)

// recordingServer captures the last request it served
type recordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	lastReq  *http.Request
	lastBody []byte
	hits     atomic.Int64
}

func newRecordingServer(t *testing.T, handler http.HandlerFunc) *recordingServer {
	t.Helper()
	s := &recordingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.lastReq = r
		s.lastBody = body
		s.mu.Unlock()
		s.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *recordingServer) last() (*http.Request, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq, s.lastBody
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithBaseURL(baseURL), WithRateLimiter(ratelimit.New(6000))}
	c, err := NewClient(NewStaticTokenProvider("api-token"), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Error("NewClient(nil) should fail")
	}

	c, err := NewClient(NewStaticTokenProvider("t"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	if info := c.LastRateLimitInfo(); !info.IsZero() {
		t.Errorf("LastRateLimitInfo() = %+v before any response, want unknown", info)
	}
	if got := c.RateLimiter().RequestsPerMinute(); got != ratelimit.ConservativeRequestsPerMinute {
		t.Errorf("default limiter rate = %d, want %d", got, ratelimit.ConservativeRequestsPerMinute)
	}

	c, _ = NewClient(NewStaticTokenProvider("t"), WithBaseURL("https://test.api.canva.com/"))
	if c.BaseURL() != "https://test.api.canva.com" {
		t.Errorf("BaseURL() = %q, trailing slash should be trimmed", c.BaseURL())
	}

	if _, err := NewClient(NewStaticTokenProvider("t"), WithBaseURL("")); err == nil {
		t.Error("empty base URL should fail")
	}
}

func TestClient_GetJSON(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(security.RequestIDHeader, "canva-req-1")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"team_user":{"user_id":"U123"}}`))
	})
	c := newTestClient(t, srv.URL)

	var me struct {
		TeamUser struct {
			UserID string `json:"user_id"`
		} `json:"team_user"`
	}
	if err := c.GetJSON(context.Background(), "/users/me", &me); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if me.TeamUser.UserID != "U123" {
		t.Errorf("decoded user_id = %q", me.TeamUser.UserID)
	}

	req, _ := srv.last()
	if req.Method != http.MethodGet || req.URL.Path != "/users/me" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	wantHeaders := map[string]string{
		"Authorization": "Bearer api-token",
		"User-Agent":    DefaultUserAgent,
		"Accept":        "application/json",
	}
	for k, v := range wantHeaders {
		if got := req.Header.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
	if len(req.Header.Get(security.RequestIDHeader)) != 36 {
		t.Errorf("outbound request ID = %q, want a UUID", req.Header.Get(security.RequestIDHeader))
	}
	if req.Header.Get("Content-Type") != "" {
		t.Error("GET without body must not set Content-Type")
	}
}

func TestClient_PropagatesRequestID(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, srv.URL)

	ctx := security.WithRequestID(context.Background(), "caller-id-42")
	resp, err := c.Delete(ctx, "/folders/F1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	resp.Body.Close()

	req, _ := srv.last()
	if got := req.Header.Get(security.RequestIDHeader); got != "caller-id-42" {
		t.Errorf("request ID = %q, want caller's", got)
	}
}

func TestClient_JSONBodies(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"design":{"id":"D1"}}`))
	})
	c := newTestClient(t, srv.URL)

	type request struct {
		Title string `json:"title"`
	}
	type response struct {
		Design struct {
			ID string `json:"id"`
		} `json:"design"`
	}

	tests := []struct {
		name   string
		method string
		call   func(out *response) error
	}{
		{"PostJSON", http.MethodPost, func(out *response) error {
			return c.PostJSON(context.Background(), "/designs", request{Title: "Poster"}, out)
		}},
		{"PatchJSON", http.MethodPatch, func(out *response) error {
			return c.PatchJSON(context.Background(), "/designs", request{Title: "Poster"}, out)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out response
			if err := tt.call(&out); err != nil {
				t.Fatalf("error = %v", err)
			}
			if out.Design.ID != "D1" {
				t.Errorf("decoded id = %q", out.Design.ID)
			}

			req, body := srv.last()
			if req.Method != tt.method {
				t.Errorf("method = %s, want %s", req.Method, tt.method)
			}
			if req.Header.Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", req.Header.Get("Content-Type"))
			}
			var sent request
			if err := json.Unmarshal(body, &sent); err != nil || sent.Title != "Poster" {
				t.Errorf("sent body = %s", body)
			}
		})
	}
}

func TestClient_Put(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newTestClient(t, srv.URL)

	resp, err := c.Put(context.Background(), "/folders/F1", map[string]string{"name": "Archive"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	resp.Body.Close()

	req, body := srv.last()
	if req.Method != http.MethodPut || !bytes.Contains(body, []byte(`"Archive"`)) {
		t.Errorf("request = %s %s", req.Method, body)
	}
}

func TestClient_EncodeFailure(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	c := newTestClient(t, srv.URL)

	_, err := c.Post(context.Background(), "/designs", map[string]any{"bad": make(chan int)})
	testutil.AssertError(t, err)
	testutil.AssertStringContains(t, err.Error(), "failed to encode request body")
	if srv.hits.Load() != 0 {
		t.Error("nothing should be sent when the body cannot be encoded")
	}
}

func TestClient_UploadFile(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"job":{"id":"J1","status":"in_progress"}}`))
	})
	c := newTestClient(t, srv.URL)

	data := []byte{0x89, 'P', 'N', 'G'}
	metadata := `{"name_base64":"bG9nby5wbmc="}`
	resp, err := c.UploadFile(context.Background(), "/asset-uploads", bytes.NewReader(data), metadata)
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	resp.Body.Close()

	req, body := srv.last()
	testutil.AssertEqual(t, req.Header.Get("Content-Type"), "application/octet-stream")
	testutil.AssertEqual(t, req.Header.Get(UploadMetadataHeader), metadata)
	if !bytes.Equal(body, data) {
		t.Errorf("uploaded body = %v, want %v", body, data)
	}
	if req.Header.Get("Authorization") != "Bearer api-token" {
		t.Error("upload must be authenticated")
	}

	resp, err = c.UploadFile(context.Background(), "/asset-uploads", bytes.NewReader(data), "")
	if err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	resp.Body.Close()
	if req, _ := srv.last(); req.Header.Get(UploadMetadataHeader) != "" {
		t.Error("empty metadata must not be sent")
	}
}

func TestClient_APIErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  ErrorCode
		wantMsg   string
		wantBody  string
		checkFunc func(error) bool
	}{
		{
			name:      "known code",
			status:    http.StatusNotFound,
			body:      `{"code":"NOT_FOUND","message":"design not found"}`,
			wantCode:  ErrorCodeNotFound,
			wantMsg:   "design not found",
			checkFunc: IsNotFound,
		},
		{
			name:     "unknown code preserved",
			status:   http.StatusBadRequest,
			body:     `{"code":"design_title_invalid","message":"title too long"}`,
			wantCode: ErrorCode("design_title_invalid"),
			wantMsg:  "title too long",
		},
		{
			name:      "non-json body",
			status:    http.StatusServiceUnavailable,
			body:      "upstream unavailable",
			wantBody:  "upstream unavailable",
			checkFunc: func(err error) bool { return !IsNotFound(err) },
		},
		{
			name:      "unauthorized",
			status:    http.StatusUnauthorized,
			body:      `{"code":"UNAUTHORIZED","message":"invalid token"}`,
			wantCode:  ErrorCodeUnauthorized,
			wantMsg:   "invalid token",
			checkFunc: IsUnauthorized,
		},
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `{"code":"TOO_MANY_REQUESTS","message":"slow down"}`,
			wantCode:  ErrorCodeTooManyRequests,
			wantMsg:   "slow down",
			checkFunc: IsRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(security.RequestIDHeader, "req-err")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c := newTestClient(t, srv.URL)

			resp, err := c.Get(context.Background(), "/designs/D1")
			if resp != nil {
				t.Error("failed request must not return a response")
			}
			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Code != tt.wantCode || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = %+v", apiErr)
			}
			if apiErr.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", apiErr.Body, tt.wantBody)
			}
			if apiErr.RequestID != "req-err" {
				t.Errorf("RequestID = %q", apiErr.RequestID)
			}
			if tt.checkFunc != nil && !tt.checkFunc(err) {
				t.Errorf("classification helper failed for %v", err)
			}
		})
	}
}

func TestClient_GetJSON_DecodeError(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"broken"`))
	})
	c := newTestClient(t, srv.URL)

	var out map[string]any
	err := c.GetJSON(context.Background(), "/users/me", &out)
	if err == nil {
		t.Fatal("expected a decode error")
	}
	if _, ok := AsAPIError(err); ok {
		t.Error("decode failure is not an API error")
	}
}

func TestClient_RateLimitInfo(t *testing.T) {
	var remaining atomic.Int64
	remaining.Store(50)
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ratelimit.HeaderLimit, "100")
		w.Header().Set(ratelimit.HeaderRemaining, strconv.FormatInt(remaining.Load(), 10))
		w.Header().Set(ratelimit.HeaderReset, "1767225600")
		w.WriteHeader(http.StatusOK)
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c := newTestClient(t, srv.URL, WithLogger(logger), WithAuditor(security.NewAuditor(logger, true)))

	if !c.LastRateLimitInfo().IsZero() {
		t.Error("no info should be recorded before the first response")
	}

	resp, err := c.Get(context.Background(), "/users/me")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	info := c.LastRateLimitInfo()
	if info.Limit != 100 || info.Remaining != 50 {
		t.Errorf("LastRateLimitInfo() = %+v", info)
	}
	if !info.ResetAt.Equal(time.Unix(1767225600, 0)) {
		t.Errorf("ResetAt = %v", info.ResetAt)
	}
	if strings.Contains(buf.String(), security.EventRateLimitNearExhaustion) {
		t.Error("50% usage must not warn")
	}

	remaining.Store(5)
	resp, err = c.Get(context.Background(), "/users/me")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if !strings.Contains(buf.String(), security.EventRateLimitNearExhaustion) {
		t.Error("95% usage should be audited")
	}
}

func TestClient_WaitsOnRateLimiter(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limiter := ratelimit.New(1)
	c := newTestClient(t, srv.URL, WithRateLimiter(limiter))

	resp, err := c.Get(context.Background(), "/users/me")
	if err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, "/users/me")
	if !errors.Is(err, ratelimit.ErrWaitAborted) {
		t.Fatalf("error = %v, want ratelimit.ErrWaitAborted", err)
	}
	if n := srv.hits.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}

func TestClient_TokenProviderFailure(t *testing.T) {
	srv := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	c, err := NewClient(NewStaticTokenProvider(""), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = c.Get(context.Background(), "/users/me")
	if !errors.Is(err, auth.ErrNoValidToken) {
		t.Errorf("error = %v, want auth.ErrNoValidToken", err)
	}
	if !auth.IsAuthError(err) {
		t.Errorf("error = %v, want authentication category", err)
	}
	if srv.hits.Load() != 0 {
		t.Error("request must not be sent without a token")
	}
}

func TestClient_RefreshesThroughOAuthClient(t *testing.T) {
	provider := testutil.NewFakeProvider()
	t.Cleanup(provider.Close)
	provider.SeedRefreshToken("rt-seed")

	oauthClient, err := auth.NewClient(auth.Config{
		ClientID:     testutil.TestClientID,
		ClientSecret: testutil.TestClientSecret,
		RedirectURI:  testutil.TestRedirectURI,
	}, auth.WithEndpoint(auth.Endpoint{
		AuthURL:       provider.AuthURL(),
		TokenURL:      provider.TokenURL(),
		IntrospectURL: provider.IntrospectURL(),
		RevokeURL:     provider.RevokeURL(),
	}))
	if err != nil {
		t.Fatalf("auth.NewClient() error = %v", err)
	}
	oauthClient.TokenStore().Store(auth.TokenSet{
		AccessToken:  "stale",
		RefreshToken: "rt-seed",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	api := newRecordingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c, err := NewClient(oauthClient, WithBaseURL(api.URL))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	resp, err := c.Get(context.Background(), "/users/me")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	req, _ := api.last()
	set, _ := oauthClient.TokenStore().Get()
	if got := req.Header.Get("Authorization"); got != "Bearer "+set.AccessToken || set.AccessToken == "stale" {
		t.Errorf("Authorization = %q, want the refreshed token", got)
	}
	if provider.RefreshCount() != 1 {
		t.Errorf("RefreshCount = %d, want 1", provider.RefreshCount())
	}
}

func TestStaticTokenProvider(t *testing.T) {
	token, err := NewStaticTokenProvider("abc").GetAccessToken(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, token.Value(), "abc")
	testutil.AssertEqual(t, token.AuthorizationHeader(), "Bearer abc")

	_, err = (StaticTokenProvider{}).GetAccessToken(context.Background())
	if !errors.Is(err, auth.ErrNoValidToken) {
		t.Errorf("zero provider error = %v, want auth.ErrNoValidToken", err)
	}
	if !auth.IsAuthError(err) {
		t.Errorf("zero provider error = %v, want an *auth.AuthError like auth.Client returns", err)
	}
}
