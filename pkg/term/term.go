// Package term prints the user-facing progress markers for deployment
// steps. Log output goes to zerolog; these lines are the operator-facing
// console surface.
package term

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	stepColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
)

// Step prints a progress indicator for a deployment step
func Step(format string, a ...interface{}) {
	stepColor.Printf("→ "+format+"\n", a...)
}

// Success prints a success marker
func Success(format string, a ...interface{}) {
	successColor.Printf("✓ "+format+"\n", a...)
}

// Failure prints a failure marker
func Failure(format string, a ...interface{}) {
	failureColor.Printf("✗ "+format+"\n", a...)
}

// Warn prints a warning marker
func Warn(format string, a ...interface{}) {
	warnColor.Printf("! "+format+"\n", a...)
}

// Plain prints an uncolored line, used for log dumps and summaries
func Plain(format string, a ...interface{}) {
	fmt.Printf(format+"\n", a...)
}
