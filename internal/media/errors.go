package media

import "errors"

var (
	// ErrNotFound means the file could not be opened or probed.
	ErrNotFound = errors.New("media not found")

	// ErrNoSuitableTrack means no stream of the requested kind carries a codec.
	ErrNoSuitableTrack = errors.New("no suitable track")

	// ErrUnsupportedCodec means no decoder or encoder is available for the stream.
	ErrUnsupportedCodec = errors.New("unsupported codec")

	// ErrInvalidBufferSize means a caller-supplied pixel buffer has the wrong length.
	ErrInvalidBufferSize = errors.New("invalid buffer size")

	// ErrFrameNotFound means the packet stream ran out before a frame qualified.
	ErrFrameNotFound = errors.New("frame not found")

	// ErrEncode covers header, packet and trailer write failures.
	ErrEncode = errors.New("encode failure")
)
