// Package pkgrouter wraps HTTP routing and common middleware used by the web
// interface.
//
// It provides a small router abstraction over httprouter plus shared concerns
// like response encoding, error mapping, logging, recovery, and correlation ID
// propagation.
package pkgrouter
