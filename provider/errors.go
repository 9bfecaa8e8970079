package provider

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
)

var (
	// ErrQuota matches any QuotaError.
	ErrQuota = errors.New("credential quota exhausted")

	// ErrCancelled is returned when the cancel flag stops a chunk mid-flight.
	ErrCancelled = errors.New("cancelled by user")
)

// QuotaError reports that a credential hit a rate or billing limit and
// should not be used again this run.
type QuotaError struct {
	Provider   string
	Credential string
	Err        error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s key %s exhausted: %v", e.Provider, e.Credential, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

func (e *QuotaError) Is(target error) bool { return target == ErrQuota }

// IsQuota reports whether err is a quota failure.
func IsQuota(err error) bool { return errors.Is(err, ErrQuota) }

// classify wraps err in a QuotaError when it looks like a quota failure.
// statusCheck lets a backend inspect its own typed API errors first.
func classify(provider, credential string, err error, statusCheck func(error) bool) error {
	if err == nil || errors.Is(err, ErrCancelled) || errors.Is(err, ErrQuota) {
		return err
	}
	if (statusCheck != nil && statusCheck(err)) || quotaMessage(err) {
		return &QuotaError{Provider: provider, Credential: credential, Err: err}
	}
	return err
}

// quotaWords matches the markers an API error payload carries when a key
// is out of quota. Status numbers alone are left to the typed checks.
var quotaWords = regexp.MustCompile(`(?i)\b(quota|resource_exhausted|too many requests)\b`)

// quotaMessage is the text fallback for API errors that arrive untyped.
// Transport failures never count, whatever their address or message says.
func quotaMessage(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return false
	}
	return quotaWords.MatchString(err.Error())
}

// Classify is classify with every backend's typed checks enabled. The
// dispatcher runs it over whatever a Client returns.
func Classify(provider, credential string, err error) error {
	return classify(provider, credential, err, func(e error) bool {
		return googleQuota(e) || openRouterQuota(e)
	})
}
