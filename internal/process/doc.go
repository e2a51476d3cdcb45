// Package process manages the external OS processes the node supervises: the
// video encoder, the headless browser, and the virtual display server.
//
// Two lifecycles are offered. Runner owns a process for its full lifetime:
// Start spawns it with its output streamed line by line into the logging
// system, Stop sends SIGINT and escalates to SIGKILL after a graceful
// timeout. StartDetached launches a process fire-and-forget in its own
// session; the caller gets a pid back and nothing else, which is exactly the
// contract the virtual display server wants.
package process
