// Package logging configures the zerolog logger shared by codecheck
// components, writing to a lumberjack-rotated file.
package logging
