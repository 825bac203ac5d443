package chunk

import "errors"

var (
	// ErrInvalidRule reports a rule whose fields are inconsistent, such as
	// negative bounds or a minimum above the maximum.
	ErrInvalidRule = errors.New("chunk: invalid rule")
	// ErrRuleNotFound is returned by the strict Lookup when a document type
	// has no entry and the table carries no default.
	ErrRuleNotFound = errors.New("chunk: rule not found")
	// ErrUnsupportedStrategy reports a strategy name absent from the registry.
	ErrUnsupportedStrategy = errors.New("chunk: unsupported strategy")
	// ErrStrategyExists guards built-ins from accidental re-registration.
	ErrStrategyExists = errors.New("chunk: strategy already registered")
	// ErrNilRegistry and ErrNilCounter reject a splitter wired without its
	// collaborators.
	ErrNilRegistry = errors.New("chunk: splitter requires a strategy registry")
	ErrNilCounter  = errors.New("chunk: splitter requires a token counter")
)
