package assert

import "fmt"

// That panics with msg if cond is false and checks are enabled.
func That(cond bool, msg string) {
	if Enabled && !cond {
		panic(&Violation{Msg: msg})
	}
}

// Thatf is That with a formatted message. The message is only formatted on
// failure.
func Thatf(cond bool, format string, args ...any) {
	if Enabled && !cond {
		panic(&Violation{Msg: fmt.Sprintf(format, args...)})
	}
}

// Violation is the panic value raised by a failed check.
type Violation struct {
	Msg string
}

func (v *Violation) Error() string {
	return "contract violation: " + v.Msg
}
