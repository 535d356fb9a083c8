// Package entities provides core domain entities for the curl host surface.
// These are general-purpose types shared by the session state machine, the
// transfer engine adapter and the host-function layer.
package entities
