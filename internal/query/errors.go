package query

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/filtex/internal/token"
)

// ValidateErrorCode is the stable discriminator of a validation failure.
type ValidateErrorCode string

const (
	ErrCodeInvalidToken       ValidateErrorCode = "invalid-token"
	ErrCodeInvalidLastToken   ValidateErrorCode = "invalid-last-token"
	ErrCodeMismatchedBrackets ValidateErrorCode = "mismatched-brackets"
	ErrCodeInvalidField       ValidateErrorCode = "invalid-field"
	ErrCodeInvalidOperator    ValidateErrorCode = "invalid-operator"
	ErrCodeInvalidLogic       ValidateErrorCode = "invalid-logic"
	ErrCodeInvalidValue       ValidateErrorCode = "invalid-value"
)

// ValidateError explains why a query is not well-formed.
type ValidateError struct {
	// Code identifies the failure kind.
	Code ValidateErrorCode

	// Message is a human-readable description.
	Message string

	// Token is the offending token, when there is one.
	Token *token.Token

	// Path locates the offending JSON node, e.g. "$[1][0]".
	Path string
}

func (e *ValidateError) Error() string {
	return formatError(string(e.Code), e.Message, e.Token, e.Path)
}

// ParseErrorCode is the stable discriminator of a parse failure.
type ParseErrorCode string

const (
	ErrCodeCouldNotBeParsed         ParseErrorCode = "could-not-be-parsed"
	ErrCodeOperatorCouldNotBeParsed ParseErrorCode = "operator-could-not-be-parsed"
	ErrCodeLogicCouldNotBeParsed    ParseErrorCode = "logic-could-not-be-parsed"
	ErrCodeNestingTooDeep           ParseErrorCode = "nesting-too-deep"
)

// ParseError reports a shape or name the parser cannot resolve.
type ParseError struct {
	Code    ParseErrorCode
	Message string
	Token   *token.Token
	Path    string
}

func (e *ParseError) Error() string {
	return formatError(string(e.Code), e.Message, e.Token, e.Path)
}

// TokenizeError reports structurally malformed JSON input: wrong arity,
// a non-array node or undecodable bytes.
type TokenizeError struct {
	Path    string
	Message string
	Err     error
}

func (e *TokenizeError) Error() string {
	if e.Path == "" {
		return "tokenize: " + e.Message
	}
	return fmt.Sprintf("tokenize: %s at %s", e.Message, e.Path)
}

func (e *TokenizeError) Unwrap() error { return e.Err }

func formatError(code, msg string, tok *token.Token, path string) string {
	switch {
	case tok != nil && path != "":
		return fmt.Sprintf("%s: %s (%q at %s)", code, msg, tok.Text, path)
	case tok != nil:
		return fmt.Sprintf("%s: %s (%q at %d)", code, msg, tok.Text, tok.Pos)
	case path != "":
		return fmt.Sprintf("%s: %s (at %s)", code, msg, path)
	}
	return fmt.Sprintf("%s: %s", code, msg)
}

// IsValidateError reports whether err is a ValidateError, optionally with
// one of codes. Uses errors.As to handle wrapped errors.
func IsValidateError(err error, codes ...ValidateErrorCode) bool {
	var ve *ValidateError
	if !errors.As(err, &ve) {
		return false
	}
	return len(codes) == 0 || slices.Contains(codes, ve.Code)
}

// IsParseError reports whether err is a ParseError, optionally with one of
// codes.
func IsParseError(err error, codes ...ParseErrorCode) bool {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return false
	}
	return len(codes) == 0 || slices.Contains(codes, pe.Code)
}

// IsTokenizeError reports whether err is a TokenizeError.
func IsTokenizeError(err error) bool {
	var te *TokenizeError
	return errors.As(err, &te)
}

// Code returns the stable discriminator of a query error, or "".
func Code(err error) string {
	var ve *ValidateError
	if errors.As(err, &ve) {
		return string(ve.Code)
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	if IsTokenizeError(err) {
		return "tokenize"
	}
	return ""
}

func tokenRef(t token.Token) *token.Token {
	return &t
}
