// Package platform isolates OS-specific file handling, such as permission
// bits that have no meaning on Windows, behind small helpers.
package platform
