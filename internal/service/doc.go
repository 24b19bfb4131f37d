// Package service wires the monitor to its control surfaces.
//
// Overview
// A Service owns one monitor.Controller and everything which drives it:
//   - the Telegram poller, whose commands go through chat.Router
//   - an optional HTTP surface to inspect and start/stop the monitor
//   - an optional gocron scheduler issuing Start in timer mode
//
// Probe output and failures of the monitor are delivered through all
// configured notifiers (Telegram, webhook). When no notifier is configured,
// notifications are printed to stdout.
//
// Data flow:
//
//   Telegram poller --> chat.Router --+
//   HTTP /monitor/* ------------------+--> monitor.Controller --> loop
//   gocron (timer mode) --------------+                            |
//                                                  probe.Runner <--+--> notifiers
//
// Do blocks until its context is done, then stops the monitor and waits for
// the loop to exit.
//
// In manual mode without Telegram and HTTP nothing could ever start the
// monitor, so it is started as soon as Do runs.
package service
