// Package workererrors turns dispatch failures into short messages for the UI.
package workererrors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adcondev/print-bridge/internal/dispatch"
	"github.com/adcondev/print-bridge/internal/printer"
)

// kindMessages gives the UI prefix for each classified failure.
var kindMessages = map[printer.Kind]string{
	printer.KindFetchFailed:        "FETCH",
	printer.KindInvalidDocument:    "DOCUMENT",
	printer.KindPrinterNotFound:    "PRINTER",
	printer.KindNetworkPrintFailed: "NETWORK",
	printer.KindLocalPrintFailed:   "LOCAL",
	printer.KindChannelsExhausted:  "PRINT",
}

// ExtractUserFriendlyError creates a clean error message for the UI
func ExtractUserFriendlyError(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT: Print job took too long"
	}
	if errors.Is(err, dispatch.ErrInvalidRequest) {
		return fmt.Sprintf("VALIDATION: %s", extractInnerError(errStr))
	}

	var pe *printer.Error
	if errors.As(err, &pe) {
		prefix := kindMessages[pe.Kind]
		switch pe.Kind {
		case printer.KindFetchFailed:
			if pe.Status != 0 {
				return fmt.Sprintf("%s: Document server answered HTTP %d", prefix, pe.Status)
			}
			return fmt.Sprintf("%s: Could not download document (%s)", prefix, extractInnerError(errStr))
		case printer.KindInvalidDocument:
			return fmt.Sprintf("%s: %s", prefix, pe.Msg)
		case printer.KindPrinterNotFound:
			return fmt.Sprintf("%s: %s", prefix, pe.Msg)
		case printer.KindChannelsExhausted:
			return fmt.Sprintf("%s: All print methods failed, last error: %s", prefix, extractInnerError(errStr))
		default:
			return fmt.Sprintf("%s: %s", prefix, extractInnerError(errStr))
		}
	}

	// Common error patterns and their friendly messages
	errorMappings := []struct {
		pattern string
		message string
	}{
		{"connection refused", "NETWORK: Printer refused the connection"},
		{"no such host", "NETWORK: Printer host not found"},
		{"executable file not found", "LOCAL: Print command is not installed"},
		{"panic recovered", "INTERNAL: Unexpected error while printing"},
	}
	for _, mapping := range errorMappings {
		if strings.Contains(strings.ToLower(errStr), mapping.pattern) {
			return mapping.message
		}
	}

	return fmt.Sprintf("ERROR: %s", errStr)
}

// extractInnerError gets the innermost error message
func extractInnerError(errStr string) string {
	parts := strings.Split(errStr, ": ")
	return parts[len(parts)-1]
}
