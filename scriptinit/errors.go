package scriptinit

import "errors"

var (
	ErrInvalidMode    = errors.New("invalid initialization mode")
	ErrScriptNotFound = errors.New("no script at location")
	ErrScriptFailed   = errors.New("script execution failed")
	ErrNoDatabase     = errors.New("database is nil")
	ErrNoFilesystem   = errors.New("script filesystem is nil")
)
