package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/roach88/filtex/internal/backend"
	"github.com/roach88/filtex/internal/query"
	"github.com/roach88/filtex/internal/schemaload"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query rejected or not buildable
	ExitCommandError = 2 // Command error (bad flags, missing schema, database failure)
)

// Error codes for failures that are not query or schema errors.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeUnbuildable = "unbuildable"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostics; keeps JSON on Writer clean
	Verbose   bool

	// TraceID is stamped on JSON responses. Generated when empty.
	TraceID string
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // response correlation id
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "invalid-token", "E002", ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

func (f *OutputFormatter) traceID() string {
	if f.TraceID == "" {
		if id, err := uuid.NewV7(); err == nil {
			f.TraceID = id.String()
		} else {
			f.TraceID = uuid.NewString()
		}
	}
	return f.TraceID
}

// Success writes data. In text mode text is printed instead; an empty
// text falls back to data's default formatting.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    data,
			TraceID: f.traceID(),
		})
	}
	if text == "" {
		text = fmt.Sprint(data)
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
			TraceID: f.traceID(),
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes to ErrWriter (or Writer) when verbose is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// Fail reports err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit, details := classify(err)
	if outErr := f.Error(code, err.Error(), details); outErr != nil {
		return WrapExitError(ExitCommandError, "write output", outErr)
	}
	return WrapExitError(exit, message, err)
}

// classify maps an error to its response code, exit code and details.
func classify(err error) (string, int, any) {
	var le *schemaload.LoadError
	if errors.As(err, &le) {
		var details any
		if le.Pos.IsValid() {
			details = map[string]any{"file": le.Pos.Filename(), "line": le.Pos.Line(), "column": le.Pos.Column()}
		}
		return le.Code, ExitCommandError, details
	}

	if code := query.Code(err); code != "" {
		return code, ExitFailure, queryDetails(err)
	}

	if backend.IsBuildError(err) {
		var be *backend.BuildError
		errors.As(err, &be)
		return ErrCodeUnbuildable, ExitFailure, map[string]any{
			"backend":  be.Backend,
			"field":    be.Field,
			"operator": be.Operator.Name(),
			"type":     be.Type,
		}
	}

	return ErrCodeGeneric, ExitCommandError, nil
}

func queryDetails(err error) any {
	details := map[string]any{}
	var ve *query.ValidateError
	var pe *query.ParseError
	var te *query.TokenizeError
	switch {
	case errors.As(err, &ve):
		if ve.Token != nil {
			details["token"], details["pos"] = ve.Token.Text, ve.Token.Pos
		}
		if ve.Path != "" {
			details["path"] = ve.Path
		}
	case errors.As(err, &pe):
		if pe.Token != nil {
			details["token"], details["pos"] = pe.Token.Text, pe.Token.Pos
		}
		if pe.Path != "" {
			details["path"] = pe.Path
		}
	case errors.As(err, &te):
		if te.Path != "" {
			details["path"] = te.Path
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
