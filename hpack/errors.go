package hpack

import "errors"

var (
	ErrTruncatedInput       = errors.New("hpack: truncated input")
	ErrIntegerOverflow      = errors.New("hpack: integer overflow")
	ErrInvalidHuffmanCode   = errors.New("hpack: invalid huffman code")
	ErrIndexOutOfRange      = errors.New("hpack: index not in addressable space")
	ErrTableSizeExceeded    = errors.New("hpack: dynamic table size exceeds limit")
	ErrInvalidEncodeRequest = errors.New("hpack: invalid encode request")
	ErrStringTooLong        = errors.New("hpack: string literal too long")
	ErrMisplacedSizeUpdate  = errors.New("hpack: dynamic table size update after header field")
	ErrHeaderListTooLarge   = errors.New("hpack: header list too large")
)
