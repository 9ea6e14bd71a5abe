// Copyright 2025 The agentcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protocol

import "fmt"

// Kind is the error taxonomy from spec §7. It is not a type hierarchy —
// just a closed set of string tags so callers can switch on them without
// reaching for errors.As across package boundaries.
type Kind string

const (
	KindUserInputInvalid      Kind = "user_input_invalid"
	KindPermissionDenied      Kind = "permission_denied"
	KindToolExecutionError    Kind = "tool_execution_error"
	KindFileModifiedExternal  Kind = "file_modified_externally"
	KindStreamProtocolError   Kind = "stream_protocol_error"
	KindProviderErrorRetry    Kind = "provider_error_retryable"
	KindProviderErrorFatal    Kind = "provider_error_fatal"
	KindCancelled             Kind = "cancelled"
	KindFatal                 Kind = "fatal"
)

// Error is the shared typed error used across the core. It mirrors the
// teacher's *SearchError shape (pkg/context/search.go): component,
// operation, message, wrapped cause.
type Error struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s:%s] %s: %v", e.Kind, e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s:%s] %s", e.Kind, e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the loop's fallback logic should retry this
// error with backoff (spec §4.D Fallback).
func (e *Error) Retryable() bool {
	return e.Kind == KindProviderErrorRetry || e.Kind == KindStreamProtocolError
}

// New constructs a tagged *Error.
func New(kind Kind, component, operation, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Operation: operation, Message: message, Err: err}
}

// IsKind reports whether err (or something it wraps) is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == k
}
