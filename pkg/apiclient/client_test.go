package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeService is a minimal stand-in for the real API: cookie-based access
// tokens that can be invalidated to force the client down the refresh path.
type fakeService struct {
	mu           sync.Mutex
	validAccess  map[string]bool
	refreshCalls int32
	nextToken    int
}

func newFakeService() *fakeService {
	return &fakeService{validAccess: map[string]bool{}}
}

func (s *fakeService) issueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	token := "token-" + string(rune('a'+s.nextToken))
	s.validAccess[token] = true
	return token
}

func (s *fakeService) invalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token := range s.validAccess {
		s.validAccess[token] = false
	}
}

func (s *fakeService) authorized(r *http.Request) bool {
	cookie, err := r.Cookie("accessToken")
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validAccess[cookie.Value]
}

func (s *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: s.issueToken(), Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "refresh-1", Path: "/"})
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user":    map[string]string{"id": "user-1", "email": "jane@x.com"},
		})
	})
	mux.HandleFunc("POST /api/users/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.refreshCalls, 1)
		if _, err := r.Cookie("refreshToken"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Refresh token is required"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: s.issueToken(), Path: "/"})
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Token refreshed successfully"})
	})
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Authentication required"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user":    map[string]string{"id": "user-1", "email": "jane@x.com"},
		})
	})
	mux.HandleFunc("GET /api/leads", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Authentication required"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true, "data": []any{}, "page": 1, "limit": 20, "total": 0, "totalPages": 1,
		})
	})
	return mux
}

func newLoggedInClient(t *testing.T) (*Client, *fakeService, *httptest.Server) {
	t.Helper()
	service := newFakeService()
	server := httptest.NewServer(service.handler())
	t.Cleanup(server.Close)

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Login(context.Background(), "jane@x.com", "hunter22"); err != nil {
		t.Fatalf("login: %v", err)
	}
	return client, service, server
}

func TestMeWithValidSession(t *testing.T) {
	client, _, _ := newLoggedInClient(t)

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user = %+v", user)
	}
}

func TestExpiredAccessTokenIsRefreshedAndRetried(t *testing.T) {
	client, service, _ := newLoggedInClient(t)
	service.invalidateAll()

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatalf("me after expiry: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user = %+v", user)
	}
	if calls := atomic.LoadInt32(&service.refreshCalls); calls != 1 {
		t.Errorf("refresh calls = %d, want 1", calls)
	}
}

func TestConcurrentExpiriesShareOneRefresh(t *testing.T) {
	client, service, _ := newLoggedInClient(t)
	service.invalidateAll()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.ListLeads(context.Background(), ListOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("list: %v", err)
		}
	}
	// Every worker saw a 401, but the in-flight refresh is shared. A worker
	// that arrives after the shared refresh finished may start another one,
	// so allow a small number, never one per worker.
	if calls := atomic.LoadInt32(&service.refreshCalls); calls >= workers {
		t.Errorf("refresh calls = %d, want far fewer than %d", calls, workers)
	}
}

func TestNoSessionSurfacesUnauthorized(t *testing.T) {
	service := newFakeService()
	server := httptest.NewServer(service.handler())
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	// No session at all: the refresh attempt fails too, and the caller
	// gets the original 401 with the service's message.
	_, err = client.Me(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Authentication required" {
		t.Errorf("message = %q", apiErr.Message)
	}
}
