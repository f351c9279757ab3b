package dbinit

import "errors"

var (
	ErrDuplicateDetector     = errors.New("detector already registered")
	ErrUnknownDetector       = errors.New("detector not registered in catalog")
	ErrDetectorInstantiation = errors.New("detector could not be instantiated")
	ErrMalformedManifest     = errors.New("malformed detector manifest")
	ErrUnknownComponent      = errors.New("detected component is not registered")
	ErrContainerIsNil        = errors.New("container is nil")
)
