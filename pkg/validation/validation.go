package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

const (
	MinThreads = 1
	MaxThreads = 20

	MaxRetries = 10
)

func ValidateThreadCount(threads int) error {
	if threads < MinThreads || threads > MaxThreads {
		return fmt.Errorf("thread count must be between %d and %d, got %d", MinThreads, MaxThreads, threads)
	}
	return nil
}

func ValidateRetryCount(retries int) error {
	if retries < 0 || retries > MaxRetries {
		return fmt.Errorf("retry count must be between 0 and %d, got %d", MaxRetries, retries)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidateBaseURL accepts absolute http and https URLs.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL must include a host, got %q", raw)
	}
	return nil
}

// ValidateAPIPath accepts paths relative to the base URL, such as /api/profile.
func ValidateAPIPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with '/', got %q", path)
	}
	if strings.Contains(path, "://") {
		return fmt.Errorf("path must not be an absolute URL, got %q", path)
	}
	return nil
}

func ValidatePositiveDuration(fieldName string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", fieldName, d)
	}
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address: %s", email)
	}
	return nil
}
