// Package session manages the temporary directories that hold an upload batch
// while it is being processed.
package session
