// Package result stores processed row sets.
//
// Every result is saved under its own handle and also becomes the latest
// result. Loading with an empty handle, or the handle "latest", returns the
// most recent one. Missing results are reported as pkgerror.ErrNotFound.
package result
