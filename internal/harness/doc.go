// Package harness runs hardware test cases one at a time and collects their
// results.
//
// ## Components
//
//   - TestCase: a unit of validation logic with a name, a bound Reporter and a
//     blocking Run method.
//   - Runner: owns the ordered queue and executes it on a dedicated goroutine,
//     separate from the dispatch goroutine that delivers controller events.
//   - Probe: a per-test subscription that filters events by kind and channel,
//     records the latest value and releases a waitgate.Gate.
//   - RetryPolicy: repeats a whole stimulus/measure cycle.
//
// ## Results
//
// Every queued test yields exactly one TestResult. A test fails when it calls
// Reporter.TestHasFailed, returns a non-nil error from Run, or panics; the
// runner converts all three into a single Failed record and moves on. A run
// always reaches StateCompleted, even when every test fails.
package harness
