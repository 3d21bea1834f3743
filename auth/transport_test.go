package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransport_AttachesCredentials(t *testing.T) {
	var gotAuth, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{
		Provider: NewStaticProvider(Credentials{Token: "tok", Cookies: map[string]string{"s": "1"}}),
		Headers:  NewHeaderBuilder([]string{"127.0.0.1"}),
	}}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotCookie != "s=1" {
		t.Errorf("Cookie = %q, want s=1", gotCookie)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("caller's request was modified")
	}
}

func TestTransport_NoCookieForServiceHost(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{
		Provider: NewStaticProvider(Credentials{Token: "tok", Cookies: map[string]string{"s": "1"}}),
	}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if gotCookie != "" {
		t.Errorf("Cookie = %q, want none", gotCookie)
	}
}

func TestTransport_ContextOverride(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{Provider: NewStaticProvider(Credentials{Token: "default"})}}
	ctx := WithCredentials(context.Background(), Credentials{Token: "override"})
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if gotAuth != "Bearer override" {
		t.Errorf("Authorization = %q, want Bearer override", gotAuth)
	}
}

func TestTransport_ProviderError(t *testing.T) {
	tr := &Transport{Provider: NewStaticProvider(Credentials{})}
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)

	if _, err := tr.RoundTrip(req); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("RoundTrip() error = %v, want ErrMissingCredentials", err)
	}

	if _, err := (&Transport{}).RoundTrip(req); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("RoundTrip() without provider error = %v, want ErrMissingCredentials", err)
	}
}
