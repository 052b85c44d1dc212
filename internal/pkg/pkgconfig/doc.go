// Package pkgconfig reads configuration values behind the Config interface.
//
// The Viper implementation loads a YAML file, lets environment variables
// override keys, and can fall back to built-in defaults when the file is
// missing.
package pkgconfig
