// Package errors provides foundational, type-safe error primitives used across assetbuilder.
//
// This package contains classified error types and helpers for error handling,
// including a fluent builder API for constructing ClassifiedError values with context.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, toolchain, compile, launch, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLI adapter for error presentation and exit codes
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryCompile, "texture compiler failed").
//		WithContext("asset", path).
//		WithContext("exit_code", code).
//		WithCause(originalErr).
//		Build()
package errors
