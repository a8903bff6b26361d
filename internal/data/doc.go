// Package data is the controller's persistence layer.
//
// A Manager holds one connection taken from the shared pool for the life of
// the process and writes button events and hall readings through it. The
// pool itself stays with the caller; CloseConnection returns the connection
// and must run before the pool is closed.
package data
