// Package logger builds the structured debug log of the shell.
package logger
