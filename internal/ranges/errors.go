package ranges

import "errors"

var (
	ErrNotFound          = errors.New("range not found")
	ErrDuplicateKey      = errors.New("range already exists")
	ErrUnsupportedEngine = errors.New("unsupported engine")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidRange      = errors.New("invalid range: istart > iend")
	ErrEmptyPatch        = errors.New("empty patch")

	ErrMissingConn  = errors.New("ranges: connection is required")
	ErrMissingTable = errors.New("ranges: table name is required")
)
