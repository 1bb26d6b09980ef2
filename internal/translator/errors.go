package translator

import "errors"

var (
	// ErrMalformedURI means the link could not be decoded per its scheme grammar.
	ErrMalformedURI = errors.New("malformed uri")
	// ErrUnsupportedProtocol means the link scheme is not one of the known protocols.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	// ErrUnsupportedFeature means the link is valid but the target dialect cannot express it.
	ErrUnsupportedFeature = errors.New("unsupported feature")
)
