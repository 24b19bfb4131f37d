// Package monitor implements the worker control loop and its state machine.
//
// Overview
// The Controller is the single owner of the worker State. Operators (chat
// commands, the HTTP surface or the timer) call Start and Stop; the
// Controller arbitrates them and spawns at most one worker loop at a time.
//
// A worker loop repeats one cycle until it is told to stop:
//   - read the state, exit when Stopping
//   - run the probe (model.Prober)
//   - forward non-empty output to the recipient (model.Notifier)
//   - wait for the interval, or less when Stop raises the Signal
//
// Data flow:
//
//	Router/HTTP/timer      Controller             loop{run}           Prober/Notifier
//	     |                     |                      |                      |
//	     | Start(recipient) -->| Stopped -> Running   |                      |
//	     |                     | go loop ------------>| Probe() ------------>|
//	     |                     |                      | Notify(output) ----->|
//	     |                     |                      | Wait(interval, sig)  |
//	     | Stop() ------------>| Running -> Stopping  |                      |
//	     |                     | sig.Notify() ------->| wait returns         |
//	     |                     |<----- Stopped -------| exit                 |
//
// Invariants:
//   - At most one loop executes at a time, regardless of how many Start calls arrive.
//   - Stopping always proceeds to Stopped, never back to Running.
//   - Only the exiting loop writes Stopped.
//   - Stop never interrupts an in-flight probe, only the idle wait.
//   - The Signal coalesces: several Notify calls before a Wait wake it once.
//
// A failed probe invocation ends the loop; a failed notification does not.
package monitor
