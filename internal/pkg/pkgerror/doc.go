// Package pkgerror defines the structured error used between the use case and
// the HTTP edge.
//
// Stores return sentinel errors (ErrNotFound, ErrInvalidName) checked with
// errors.Is. The use case turns them into an *Error carrying the message shown
// to the client, a type and a code; the router maps the code to a status.
package pkgerror
