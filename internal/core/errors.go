package core

import "errors"

var (
	// ErrUnsupportedFormat is returned for files that are not .csv or .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file type")

	// ErrEmptyFile is returned when a file has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrMalformed wraps parser failures on corrupt or mismatched content.
	ErrMalformed = errors.New("malformed file")

	// ErrFileTooLarge is returned when an upload exceeds the configured size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnknownColumn is returned when a selection names a column the table
	// does not have.
	ErrUnknownColumn = errors.New("column not found")

	// ErrNotEnoughNumeric is returned by BuildChart when fewer than two
	// numeric columns exist.
	ErrNotEnoughNumeric = errors.New("not enough numeric columns for visualization")

	// ErrFileNotFound is returned for an unknown file id in a workspace.
	ErrFileNotFound = errors.New("file not found")

	// ErrSessionNotFound is returned when a session expired or never existed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownCommand is returned for a command name the file state does
	// not understand.
	ErrUnknownCommand = errors.New("unknown command")
)
