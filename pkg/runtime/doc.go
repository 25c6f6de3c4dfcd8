// Package runtime runs link services in the background and collects
// their errors.
package runtime
