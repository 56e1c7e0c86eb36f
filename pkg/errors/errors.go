// Package errors provides error wrapping utilities for context-aware error messages.
package errors

import "fmt"

// Wrap annotates err with a context prefix while keeping the original
// error available to errors.Is/errors.As. A nil err passes through as nil.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
