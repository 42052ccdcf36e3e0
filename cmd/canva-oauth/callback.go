package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html><head><title>Canva authorization</title></head>
<body>{{if .Error}}<h1>Authorization failed</h1><p>{{.Error}}: {{.Description}}</p>
{{else}}<h1>Authorization complete</h1><p>You can close this window.</p>{{end}}</body></html>
`))

// callbackResult carries the query of the OAuth redirect
type callbackResult struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// callbackServer accepts a single OAuth redirect on a loopback address
type callbackServer struct {
	listener net.Listener
	server   *http.Server
	path     string
	resultCh chan callbackResult
	once     sync.Once
}

// newCallbackServer listens on the host and port of redirectURI, which must
// be a plain-http loopback URL
func newCallbackServer(redirectURI string) (*callbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI %q must use http for the local callback server", redirectURI)
	}
	if !isLoopback(u.Hostname()) {
		return nil, fmt.Errorf("redirect URI %q must point at 127.0.0.1 or localhost", redirectURI)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", port))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	s := &callbackServer{
		listener: listener,
		path:     path,
		resultCh: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		_ = s.server.Serve(listener)
	}()

	return s, nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// URL returns the address the server actually listens on
func (s *callbackServer) URL() string {
	return "http://" + s.listener.Addr().String() + s.path
}

func (s *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	// A "/" pattern matches every path; only the redirect path may consume the callback.
	if r.URL.Path != s.path {
		http.NotFound(w, r)
		return
	}

	handled := false
	s.once.Do(func() {
		handled = true

		q := r.URL.Query()
		result := callbackResult{
			Code:             q.Get("code"),
			State:            q.Get("state"),
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Referrer-Policy", "no-referrer")
		_ = callbackPage.Execute(w, map[string]string{
			"Error":       result.Error,
			"Description": result.ErrorDescription,
		})

		s.resultCh <- result
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

// Wait blocks until the redirect arrives or ctx is done
func (s *callbackServer) Wait(ctx context.Context) (callbackResult, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case <-ctx.Done():
		return callbackResult{}, fmt.Errorf("timed out waiting for authorization callback: %w", ctx.Err())
	}
}

// Close shuts the server down
func (s *callbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
