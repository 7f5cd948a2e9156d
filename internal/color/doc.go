// Package color provides the terminal palette and styles for ioctest.
//
// Colors are adaptive: each has a light and a dark variant and lipgloss
// picks one based on the terminal background. Initialize overrides the
// detection, which the tests use to get stable output.
//
// # Semantic Colors
//
//   - Pass: a test or measurement within limits
//   - Fail: a failed test and its reason
//   - Info: headers and live values
//   - Muted: details such as limits and durations
//
// # Usage Example
//
//	styles := color.NewStyles(lipgloss.NewRenderer(os.Stdout))
//	fmt.Println(styles.Pass.Render("PASSED"))
//
// Output written to something that is not a terminal carries no escape
// sequences; the renderer downgrades the profile on its own.
package color
