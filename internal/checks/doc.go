// Package checks implements the base unit production tests.
//
// Every test follows the same shape: enter test mode, apply a stimulus,
// request a measurement through a harness.Probe, evaluate it, report it and
// put the hardware back into its safe state whatever the outcome.
//
//   - RangeCheck: PSO, pulse driver, analog inputs and the GPO/ECG outputs
//     read back on analog input 6. Values must lie strictly inside the
//     configured window.
//   - GPIOCheck: digital loopback between the two MCU GPIO lines.
//   - CuffCheck: waits for a cuff pressure at or above a threshold, retrying
//     the whole detection a configured number of times.
package checks
