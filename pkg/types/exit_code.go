// SPDX-License-Identifier: MPL-2.0

package types

import "fmt"

const (
	// ExitSuccess means the requested operation completed.
	ExitSuccess ExitCode = 0
	// ExitInvalidInput covers usage errors, a missing source directory and
	// manifest errors: everything detected before the scratch directory exists.
	ExitInvalidInput ExitCode = 1
	// ExitIOFailure covers copy, hook, prune, compress and move failures.
	ExitIOFailure ExitCode = 2

	maxExitCode ExitCode = 255
)

// ExitCode is the status addonpack terminates with.
type ExitCode int

var exitCodeNames = map[ExitCode]string{
	ExitSuccess:      "success",
	ExitInvalidInput: "invalid input",
	ExitIOFailure:    "i/o failure",
}

// String names the outcome followed by the numeric code, e.g. "invalid input (1)".
// Codes addonpack never produces itself are reported as "exit status N".
func (c ExitCode) String() string {
	if name, ok := exitCodeNames[c]; ok {
		return fmt.Sprintf("%s (%d)", name, int(c))
	}
	return fmt.Sprintf("exit status %d", int(c))
}

// Int returns the value to hand to os.Exit. Codes outside the POSIX range
// collapse to 255 so a failure can never wrap around to zero.
func (c ExitCode) Int() int {
	if c < 0 || c > maxExitCode {
		return int(maxExitCode)
	}
	return int(c)
}
