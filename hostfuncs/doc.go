// Package hostfuncs exposes the curl session operations as named JSON host
// functions. It has no WASM runtime dependency; infrastructure/wazero binds a
// HandlerRegistry to a wazero runtime.
package hostfuncs
