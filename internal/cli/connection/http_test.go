package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewHTTPClient(t *testing.T) {
	tests := []struct {
		name   string
		server string
		want   string
	}{
		{"with http prefix", "http://localhost:9090", "http://localhost:9090"},
		{"with https prefix", "https://localhost:9090/", "https://localhost:9090"},
		{"without prefix", "localhost:9090", "http://localhost:9090"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewHTTPClient(tt.server, "").BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPClient_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "sabertooth-cli/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.Method != http.MethodPost || r.URL.Path != "/v1/mandates/blog/rebuild" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"code":"OK","data":{"name":"blog","build":4}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok")
	resp, err := client.Post(context.Background(), "/v1/mandates/blog/rebuild")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Name  string `json:"name"`
		Build int    `json:"build"`
	}
	if err := ParseResponse(resp, &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "blog" || got.Build != 4 {
		t.Errorf("got %+v", got)
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"envelope", http.StatusNotFound, `{"code":"ST-MAND-4040","message":"mandate not found"}`, "[ST-MAND-4040] mandate not found"},
		{"bare status", http.StatusUnauthorized, ``, "request failed with status 401"},
		{"bad json", http.StatusOK, `{`, "parse response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewHTTPClient(server.URL, "").Get(context.Background(), "/x")
			if err != nil {
				t.Fatal(err)
			}
			err = ParseResponse(resp, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
