// Package guest is the client side of the curl host functions for Go code
// compiled to WebAssembly (GOOS=wasip1).
//
// A Client issues the ten curl operations through a Caller. HostCaller calls the
// functions imported from the "curl_host" module; any other Caller (for example
// one backed by hostfuncs.HandlerRegistry) lets the same code run natively.
//
//	c := guest.NewClient(guest.HostCaller{})
//	if err := c.Init(ctx); err != nil {
//	    return err
//	}
//	defer c.Cleanup(ctx)
//	resp, err := c.Get(ctx, "https://example.com")
//
// NewLogHandler returns a slog.Handler that forwards records to the host's
// log_message function.
package guest
