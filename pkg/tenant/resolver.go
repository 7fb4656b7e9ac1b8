package tenant

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"slices"
	"strings"
)

const (
	// MaxCodeLength keeps codes usable as DNS labels.
	MaxCodeLength = 63
	// MaxDomainLength is the DNS limit for a full host name.
	MaxDomainLength = 253
)

var (
	codePattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
)

// Resolver extracts a tenant identifier from a request.
// Returns empty string when the request carries none. Returned identifiers
// are already normalized and validated.
type Resolver func(r *http.Request) (string, error)

// NormalizeCode lower-cases and trims s, then checks it is a valid code.
func NormalizeCode(s string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(s))
	if code == "" || len(code) > MaxCodeLength || !codePattern.MatchString(code) {
		return "", fmt.Errorf("%w: code %q", ErrInvalidIdentifier, s)
	}
	return code, nil
}

// NormalizeDomain lower-cases and trims s, strips a port and a trailing dot,
// then checks every label.
func NormalizeDomain(s string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(s))
	if host, _, err := net.SplitHostPort(domain); err == nil {
		domain = host
	}
	domain = strings.TrimSuffix(domain, ".")
	if domain == "" || len(domain) > MaxDomainLength || !strings.Contains(domain, ".") {
		return "", fmt.Errorf("%w: domain %q", ErrInvalidIdentifier, s)
	}
	for label := range strings.SplitSeq(domain, ".") {
		if len(label) > MaxCodeLength || !labelPattern.MatchString(label) {
			return "", fmt.Errorf("%w: domain %q", ErrInvalidIdentifier, s)
		}
	}
	return domain, nil
}

// Normalize treats identifiers containing a dot as domains, anything else as codes.
func Normalize(identifier string) (string, error) {
	if IsDomain(identifier) {
		return NormalizeDomain(identifier)
	}
	return NormalizeCode(identifier)
}

// IsDomain reports whether identifier looks like a host name rather than a code.
func IsDomain(identifier string) bool {
	return strings.Contains(identifier, ".")
}

func hostOnly(r *http.Request) string {
	host := strings.ToLower(strings.TrimSpace(r.Host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

// PathResolver reads the code from the 1-based path segment at position.
// Position 1 extracts "etb001" from /etb001/dashboard.
func PathResolver(position int) Resolver {
	return func(r *http.Request) (string, error) {
		if position < 1 {
			return "", fmt.Errorf("invalid path position: %d", position)
		}

		path := strings.Trim(r.URL.Path, "/")
		if path == "" {
			return "", nil
		}

		parts := strings.Split(path, "/")
		if position > len(parts) || parts[position-1] == "" {
			return "", nil
		}

		return NormalizeCode(parts[position-1])
	}
}

// SubdomainResolver reads the code from the first label left of suffix,
// e.g. "etb001" from etb001.xamu.fr with suffix ".xamu.fr". The bare base
// domain and the www label yield no identifier.
func SubdomainResolver(suffix string) Resolver {
	suffix = "." + strings.Trim(strings.ToLower(suffix), ".")

	return func(r *http.Request) (string, error) {
		host := hostOnly(r)
		if !strings.HasSuffix(host, suffix) {
			return "", nil
		}

		sub := strings.TrimSuffix(host, suffix)
		if sub == "" || sub == "www" {
			return "", nil
		}
		if strings.Contains(sub, ".") {
			labels := strings.Split(sub, ".")
			if labels[0] != "www" || len(labels) != 2 {
				return "", fmt.Errorf("%w: subdomain %q", ErrInvalidIdentifier, sub)
			}
			sub = labels[1]
		}

		return NormalizeCode(sub)
	}
}

// HostResolver returns the full request host so establishments can be reached
// on their own domain. Hosts listed in platform (and their subdomains) are
// ignored; they belong to the other resolvers.
func HostResolver(platform ...string) Resolver {
	bases := make([]string, 0, len(platform))
	for _, p := range platform {
		bases = append(bases, strings.Trim(strings.ToLower(p), "."))
	}

	return func(r *http.Request) (string, error) {
		host := hostOnly(r)
		if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
			return "", nil
		}
		if slices.ContainsFunc(bases, func(b string) bool {
			return host == b || strings.HasSuffix(host, "."+b)
		}) {
			return "", nil
		}
		return NormalizeDomain(host)
	}
}

// HeaderResolver reads the code from a header, "X-Tenant-Code" by default.
func HeaderResolver(name string) Resolver {
	if name == "" {
		name = "X-Tenant-Code"
	}

	return func(r *http.Request) (string, error) {
		value := r.Header.Get(name)
		if value == "" {
			return "", nil
		}
		return NormalizeCode(value)
	}
}

// CompositeResolver tries resolvers in order and returns the first identifier.
func CompositeResolver(resolvers ...Resolver) Resolver {
	return func(r *http.Request) (string, error) {
		var errs []error

		for _, resolve := range resolvers {
			id, err := resolve(r)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if id != "" {
				return id, nil
			}
		}

		if len(errs) > 0 {
			return "", fmt.Errorf("composite resolver: %w", errors.Join(errs...))
		}

		return "", nil
	}
}
