// Package sandbox isolates each worker's on-disk state under its own
// root directory and gives it a persistent instance identity.
package sandbox
