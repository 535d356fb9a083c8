// Package host loads the curl host module and runs WebAssembly guests against it.
//
// A Module owns everything with process lifetime: the transfer engine (initialised
// once), the interrupt bridge, the single session with its buffers, and the host
// function registry. An Executor wraps a wazero runtime that exports the module's
// registry to guests under the configured module name.
package host
