// Package helpers holds the small platform and string utilities shared by the
// onionshare commands: resource path resolution, random strings and slugs,
// constant-time comparison, size formatting and privilege checks.
package helpers
