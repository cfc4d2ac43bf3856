// Package platform isolates the OS-specific file operations used when
// reading source resources.
package platform
