package tenant

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// maxIdentifierLength keeps identifiers DNS-compatible and bounds parsing.
const maxIdentifierLength = 63

// identifierPattern allows UUIDs and DNS-safe subdomains alike.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// Resolver extracts a tenant identifier from a request. Empty string means
// no identifier present; an error means one was present but malformed.
type Resolver func(r *http.Request) (string, error)

func validIdentifier(id string) bool {
	return id != "" && len(id) <= maxIdentifierLength && identifierPattern.MatchString(id)
}

// NewHeaderResolver reads the identifier from an HTTP header, defaulting to
// X-Tenant-ID.
func NewHeaderResolver(headerName string) Resolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return func(r *http.Request) (string, error) {
		value := strings.TrimSpace(r.Header.Get(headerName))
		if value == "" {
			return "", nil
		}
		if !validIdentifier(value) {
			return "", fmt.Errorf("%w: header value %q", ErrInvalidIdentifier, value)
		}
		return value, nil
	}
}

// NewSubdomainResolver extracts the store subdomain, stripping the platform
// suffix (e.g. ".storekit.app"). Returns empty for the bare domain and www.
func NewSubdomainResolver(suffix string) Resolver {
	return func(r *http.Request) (string, error) {
		host := r.Host
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
		if suffix != "" {
			if !strings.HasSuffix(host, suffix) || len(host) <= len(suffix) {
				return "", nil
			}
			host = strings.TrimSuffix(host, suffix)
			host = strings.TrimSuffix(host, ".")
		}

		parts := strings.Split(host, ".")
		sub := parts[0]
		if sub == "" || sub == "www" {
			return "", nil
		}
		if !validIdentifier(sub) {
			return "", fmt.Errorf("%w: subdomain %q", ErrInvalidIdentifier, sub)
		}
		return sub, nil
	}
}

// NewCompositeResolver tries resolvers in order, returning the first
// non-empty identifier.
func NewCompositeResolver(resolvers ...Resolver) Resolver {
	return func(r *http.Request) (string, error) {
		for _, resolve := range resolvers {
			id, err := resolve(r)
			if err != nil {
				return "", err
			}
			if id != "" {
				return id, nil
			}
		}
		return "", nil
	}
}
