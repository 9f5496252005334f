package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	wserrors "github.com/subroutinecom/workspace/internal/errors"
	"github.com/pterm/pterm"
)

// ErrorFormatter provides consistent error formatting.
type ErrorFormatter struct {
	writer io.Writer
}

// NewErrorFormatter creates a new error formatter.
func NewErrorFormatter(w io.Writer) *ErrorFormatter {
	return &ErrorFormatter{
		writer: w,
	}
}

// Format formats an error for display.
func (f *ErrorFormatter) Format(err error) string {
	if err == nil {
		return ""
	}

	var wsErr *wserrors.Error
	if errors.As(err, &wsErr) {
		return f.formatWorkspaceError(wsErr)
	}

	return f.formatGenericError(err)
}

// formatWorkspaceError formats a structured *errors.Error with full context.
func (f *ErrorFormatter) formatWorkspaceError(err *wserrors.Error) string {
	var sb strings.Builder

	badge := pterm.NewStyle(pterm.BgRed, pterm.FgWhite, pterm.Bold).
		Sprintf(" %s ", strings.ToUpper(string(err.Kind)))
	sb.WriteString(badge)
	sb.WriteString(" ")

	sb.WriteString(pterm.FgRed.Sprint(err.Message))
	sb.WriteString("\n")

	if err.Cause != nil {
		sb.WriteString("\n")
		sb.WriteString(pterm.FgBlue.Sprint("Cause"))
		sb.WriteString(": ")
		sb.WriteString(err.Cause.Error())
		sb.WriteString("\n")
	}

	if len(err.Context) > 0 {
		sb.WriteString("\n")
		sb.WriteString(pterm.FgBlue.Sprint("Context"))
		sb.WriteString(":\n")
		for k, v := range err.Context {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", pterm.FgGray.Sprint(k), v))
		}
	}

	if err.Hint != "" {
		sb.WriteString("\n")
		sb.WriteString(pterm.FgCyan.Sprint("ℹ"))
		sb.WriteString(" ")
		sb.WriteString(pterm.FgGray.Sprint(err.Hint))
		sb.WriteString("\n")
	}

	if err.LogPath != "" {
		sb.WriteString("\n")
		sb.WriteString(pterm.FgGray.Sprint("Log: "))
		sb.WriteString(pterm.FgCyan.Sprint(err.LogPath))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatGenericError formats a regular error.
func (f *ErrorFormatter) formatGenericError(err error) string {
	return fmt.Sprintf("%s %s\n", pterm.FgRed.Sprint("✗"), err.Error())
}

// Write writes a formatted error to the writer.
func (f *ErrorFormatter) Write(err error) {
	if err == nil {
		return
	}
	fmt.Fprint(f.writer, f.Format(err))
}

// PrintError prints a formatted error using the global configuration.
func PrintError(err error) {
	if err == nil {
		return
	}

	formatter := NewErrorFormatter(ErrWriter())
	formatter.Write(err)
}

// FormatErrorBrief returns a brief one-line error message, used for the
// single-line cause required on any non-zero exit.
func FormatErrorBrief(err error) string {
	if err == nil {
		return ""
	}

	var wsErr *wserrors.Error
	if errors.As(err, &wsErr) {
		return fmt.Sprintf("[%s] %s", wsErr.Kind, wsErr.Message)
	}

	return err.Error()
}

// IsUserError returns true if the error is likely a user error (vs internal error).
func IsUserError(err error) bool {
	if err == nil {
		return false
	}

	var wsErr *wserrors.Error
	if errors.As(err, &wsErr) {
		return wsErr.Kind != wserrors.KindInternal
	}

	return true
}
