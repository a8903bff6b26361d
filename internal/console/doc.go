// Package console provides the controller's line-oriented command interface.
//
// A Commander maps command names to handlers. The same Commander serves the
// local Reader (usually stdin) and remote commands arriving over MQTT, so a
// command behaves identically whichever way it was typed.
//
// Built-in commands:
//
//	help      list commands
//	status    one-line summary supplied by the caller
//	shutdown  request an orderly shutdown with exit code 0
package console
