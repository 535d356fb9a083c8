// Package wazero exposes a host function registry to WebAssembly guests running
// under the wazero runtime.
//
// Every registry function becomes an export of one host module (default
// "curl_host") with the signature (i64) -> i64. Both the argument and the result
// pack a guest pointer in the upper 32 bits and a length in the lower 32 bits.
// The argument points at a JSON request, the result at a JSON response written
// into memory obtained from the guest's "allocate" export.
//
// # Basic Usage
//
//	registry, err := hostfuncs.NewRegistry(
//	    hostfuncs.WithBundle(hostfuncs.CurlBundle(s)),
//	)
//	if err != nil {
//	    return err
//	}
//
//	runtime := wazero.NewRuntime(ctx)
//	_, err = wazero.RegisterWithRuntime(ctx, runtime, registry,
//	    wazero.WithCustomHandler(wazero.LogMessageHandler(logger)),
//	)
//
// A guest written in Go imports the functions with
//
//	//go:wasmimport curl_host curl_easy_perform
//	func curlEasyPerform(packed uint64) uint64
package wazero
