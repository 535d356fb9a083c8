// Package ports defines interfaces for infrastructure operations.
// The session state machine depends on these abstractions; the transfer
// engine adapter in infrastructure/transfer implements them.
package ports
