// Package httpserver runs an http.Handler until its context is cancelled and
// then drains in-flight requests.
//
// # Usage
//
//	srv := httpserver.New(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Run blocks. Once ctx is cancelled it stops accepting connections and waits
// up to Config.ShutdownTimeout for running requests. Request contexts are
// derived from ctx without its cancellation, so handlers are not aborted
// by the shutdown signal itself.
//
// Tests serve on a pre-bound listener:
//
//	ln, _ := net.Listen("tcp", "127.0.0.1:0")
//	srv := httpserver.New(cfg, httpserver.WithListener(ln))
//
// # Health checks
//
// HealthHandler runs named Checks with a timeout and answers 200 with
// {"status":"ok"} or 503 listing the failed checks. Without checks it
// always answers 200 and serves as a liveness endpoint.
//
// # Errors
//
// Run returns ErrStart joined with the listener error, or with ErrRunning
// when the server is already serving. Shutdown returns ErrShutdown when
// the drain does not finish in time.
package httpserver
