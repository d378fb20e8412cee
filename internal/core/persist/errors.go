package persist

import (
	"errors"
	"fmt"
)

// Core persistence errors
var (
	ErrArchiveClosed  = errors.New("archive writer is closed")
	ErrDuplicateEntry = errors.New("archive entry name already written")
	ErrMissingEntry   = errors.New("required archive entry is missing")
	ErrChecksum       = errors.New("archive entry checksum mismatch")
	ErrCodecMismatch  = errors.New("archive was written with a different codec")
)

// CodecError reports malformed serialized data: a text parse failure or
// a binary decode failure, depending on the codec in use. Both surface
// through this one type so callers never special-case the codec.
type CodecError struct {
	Codec string
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s codec: %v", e.Codec, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
