// Package clientip finds the address of the client behind a request.
//
// Forwarding headers are honoured only when the deployment says a proxy
// sets them; otherwise any client could pick its own address. A Resolver
// built without headers uses RemoteAddr alone.
//
// The resolution examines the trusted headers in the given order and
// returns the first valid address:
//
//   - a comma-separated header such as X-Forwarded-For yields its first
//     valid entry
//   - single-value headers such as CF-Connecting-IP or X-Real-IP are used
//     as is
//   - RemoteAddr is the fallback when no header matches
//
// Addresses are normalized with net.ParseIP, so IPv6 forms compare equal.
//
// # Usage
//
//	res := clientip.New(cfg.ClientIPHeaders...)
//	r.Use(res.Middleware)
//
//	// later, in a handler or a rate-limit key
//	ip := clientip.FromContext(r.Context())
//
// Key adapts FromContext to a rate limiter key function and
// LoggerExtractor adds client_ip to every log record of the request.
//
// # Errors
//
// Nothing in the package fails. When no valid address is found the result
// is "" and callers decide how to proceed; the rate limiter skips such
// requests.
package clientip
