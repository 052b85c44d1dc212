// Package pkguid generates identifiers.
//
// UUID (version 7) names upload sessions and requests; Snowflake IDs, rendered
// as decimal strings, address stored results in creation order.
package pkguid
