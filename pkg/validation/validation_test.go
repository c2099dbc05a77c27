package validation

import (
	"strings"
	"testing"
	"time"
)

func TestValidateThreadCount(t *testing.T) {
	tests := []struct {
		name    string
		threads int
		wantErr bool
	}{
		{"valid minimum", 1, false},
		{"valid middle", 10, false},
		{"valid maximum", 20, false},
		{"too low", 0, true},
		{"negative", -1, true},
		{"too high", 21, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThreadCount(tt.threads)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateThreadCount(%d) error = %v, wantErr %v", tt.threads, err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "thread") {
				t.Errorf("Error message should mention 'thread': %v", err)
			}
		})
	}
}

func TestValidateRetryCount(t *testing.T) {
	tests := []struct {
		name    string
		retries int
		wantErr bool
	}{
		{"no retries", 0, false},
		{"default", 2, false},
		{"maximum", 10, false},
		{"negative", -1, true},
		{"too many", 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRetryCount(tt.retries)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRetryCount(%d) error = %v, wantErr %v", tt.retries, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonEmptyString(t *testing.T) {
	tests := []struct {
		name      string
		fieldName string
		value     string
		wantErr   bool
	}{
		{"valid string", "email", "ana@example.com", false},
		{"empty string", "email", "", true},
		{"whitespace only", "password", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonEmptyString(tt.fieldName, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNonEmptyString(%q, %q) error = %v, wantErr %v", tt.fieldName, tt.value, err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.fieldName) {
				t.Errorf("Error message should name the field: %v", err)
			}
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"localhost", "http://localhost:3000", false},
		{"https with path", "https://console.example.com/", false},
		{"missing scheme", "console.example.com", true},
		{"ftp scheme", "ftp://console.example.com", true},
		{"no host", "http://", true},
		{"empty", "", true},
		{"control character", "http://exa\x7fmple.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBaseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBaseURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAPIPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"api path", "/api/profile", false},
		{"with query", "/api/whatsapp/instances?page=2", false},
		{"relative", "api/profile", true},
		{"absolute URL", "http://evil.example.com/api", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration("refresh margin", 5*time.Minute); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, d := range []time.Duration{0, -time.Second} {
		err := ValidatePositiveDuration("refresh margin", d)
		if err == nil || !strings.Contains(err.Error(), "refresh margin") {
			t.Errorf("ValidatePositiveDuration(%s) error = %v", d, err)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"ana@example.com", false},
		{"ana.silva+console@example.co", false},
		{"ana", true},
		{"", true},
		{"Ana <ana@example.com>", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}
