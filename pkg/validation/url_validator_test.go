package validation

import (
	"errors"
	"testing"

	apperrors "go-sign-recognizer/internal/errors"
)

func messageOf(t *testing.T, err error) string {
	t.Helper()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected AppError, got: %T", err)
	}
	return appErr.Message
}

func TestNewURLValidator(t *testing.T) {
	validator := NewURLValidator()
	if validator == nil {
		t.Fatal("Expected non-nil URL validator")
	}

	expectedSchemes := []string{"http", "https"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Errorf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	if validator.allowPrivate {
		t.Error("Expected private addresses to be refused by default")
	}
}

func TestValidateImageURL(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		name    string
		url     string
		wantMsg string
	}{
		{"https", "https://example.com/sign.png", ""},
		{"http with port", "http://cdn.example.com:8080/a/b.jpg", ""},
		{"upper case scheme", "HTTPS://example.com/sign.png", ""},
		{"public ip", "http://93.184.216.34/sign.png", ""},
		{"empty", "", "URL cannot be empty"},
		{"blank", " \t\n", "URL cannot be empty"},
		{"bad escape", "http://example.com/%zz", "Invalid URL format"},
		{"ftp", "ftp://example.com/sign.png", "URL scheme not allowed"},
		{"file", "file://local/path/sign.png", "URL scheme not allowed"},
		{"data url", "data:image/png;base64,iVBORw0KGgo=", "URL scheme not allowed"},
		{"no scheme", "not-a-url", "URL scheme not allowed"},
		{"no host", "http://", "URL must have a valid host"},
		{"empty host with path", "http:///path", "URL must have a valid host"},
		{"loopback", "http://127.0.0.1/sign.png", "URL points to a private address"},
		{"localhost", "http://localhost:8080/sign.png", "URL points to a private address"},
		{"private range", "http://192.168.1.1/sign.png", "URL points to a private address"},
		{"link local", "http://169.254.169.254/latest", "URL points to a private address"},
		{"ipv6 loopback", "http://[::1]/sign.png", "URL points to a private address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateImageURL(tt.url)
			if tt.wantMsg == "" {
				if err != nil {
					t.Errorf("Expected %s to pass validation, got error: %v", tt.url, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected %s to fail validation", tt.url)
			}
			if got := messageOf(t, err); got != tt.wantMsg {
				t.Errorf("Expected %q, got %q", tt.wantMsg, got)
			}
			if apperrors.GetStatusCode(err) != 400 {
				t.Errorf("Expected status 400, got %d", apperrors.GetStatusCode(err))
			}
		})
	}
}

func TestValidateImageURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"http", "https"}, []string{"Example.com", "10.0.0.5"})

	for _, url := range []string{
		"http://example.com/sign.jpg",
		"https://EXAMPLE.com:443/sign.png",
		"http://10.0.0.5/internal.png",
	} {
		if err := validator.ValidateImageURL(url); err != nil {
			t.Errorf("Expected allowed host URL %s to pass validation, got error: %v", url, err)
		}
	}

	for _, url := range []string{
		"http://malicious.com/sign.jpg",
		"https://sub.example.com/sign.png",
	} {
		err := validator.ValidateImageURL(url)
		if err == nil {
			t.Fatalf("Expected disallowed host URL %s to fail validation", url)
		}
		if got := messageOf(t, err); got != "URL host not allowed" {
			t.Errorf("Expected 'URL host not allowed', got %q", got)
		}
	}
}

func TestIsPrivateHost(t *testing.T) {
	cases := map[string]bool{
		"localhost":      true,
		"app.localhost":  true,
		"127.0.0.1":      true,
		"10.1.2.3":       true,
		"172.16.0.1":     true,
		"0.0.0.0":        true,
		"fe80::1":        true,
		"8.8.8.8":        false,
		"example.com":    false,
		"localhost.test": false,
	}
	for host, want := range cases {
		if got := isPrivateHost(host); got != want {
			t.Errorf("isPrivateHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestIsSchemeAllowed(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, nil)
	if !validator.isSchemeAllowed("https") {
		t.Error("Expected https scheme to be allowed")
	}
	if validator.isSchemeAllowed("http") {
		t.Error("Expected http scheme to be disallowed")
	}
}
