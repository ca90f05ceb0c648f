package transport

import "errors"

var (
	ErrConnectionClosed        = errors.New("connection closed")
	ErrInvalidTLSConfig        = errors.New("invalid TLS configuration")
	ErrInvalidAddress          = errors.New("invalid listen address")
	ErrListenerClosed          = errors.New("listener closed")
	ErrCertificateVerification = errors.New("certificate verification failed")
	ErrGracefulShutdownTimeout = errors.New("graceful shutdown timed out")
)
