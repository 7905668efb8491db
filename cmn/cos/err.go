// Package cos provides common low-level types and utilities shared by
// every core package: typed error kinds, syscall-level error
// classification, and a per-goroutine last-error cell.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
)

// Kind enumerates the library's error kinds, grouped by subsystem.
// Kind only has a String() name; ErrKind wraps it with call-site
// detail and is the type that implements error.
type Kind int

const (
	// memory
	InsufficientMemory Kind = iota

	// transport
	ConnectionGracefullyClosed // info, not error
	ConnectionRefused
	ConnectionReset
	ConnectionTimedOut
	NetworkUnreachable
	HostNotFound
	GenericSocket

	// threading
	DeadlockDetected
	InvalidResourceOperation
	ResourceBusy
	GenericThread

	// framing/codec
	BufferOverflow
	BufferUnderflow // info
	IndexOutOfBounds
	BadUtfFormat
	BadSymbolFormat
	UnsupportedFieldType

	// protocol
	UnexpectedMessageType
	InvalidMessageLength
	MessageIncomplete // info, recoverable
	DescribeProtocolMessageCorrupted
	RecordDescriptionNotReceived
	RecordNotSupported
	UnknownRecordName
	RecordInfoCorrupted
	InconsistentMessageSupport
	ServerMessageNotSupported
	LocalMessageNotSupportedByServer

	// address
	InvalidPortValue
	UnknownCodec
	InvalidFunctionArg

	// connection
	InvalidConnectionHandle
	ConnectionContextNotInitialized
	ConnectionClosed

	// subscription
	InvalidEventType
	InvalidSubscriptionId
	InvalidSymbolName
	InvalidListener
)

var kindNames = [...]string{
	InsufficientMemory:                "InsufficientMemory",
	ConnectionGracefullyClosed:        "ConnectionGracefullyClosed",
	ConnectionRefused:                 "ConnectionRefused",
	ConnectionReset:                   "ConnectionReset",
	ConnectionTimedOut:                "ConnectionTimedOut",
	NetworkUnreachable:                "NetworkUnreachable",
	HostNotFound:                      "HostNotFound",
	GenericSocket:                     "GenericSocket",
	DeadlockDetected:                  "DeadlockDetected",
	InvalidResourceOperation:          "InvalidResourceOperation",
	ResourceBusy:                      "ResourceBusy",
	GenericThread:                     "GenericThread",
	BufferOverflow:                    "BufferOverflow",
	BufferUnderflow:                   "BufferUnderflow",
	IndexOutOfBounds:                  "IndexOutOfBounds",
	BadUtfFormat:                      "BadUtfFormat",
	BadSymbolFormat:                   "BadSymbolFormat",
	UnsupportedFieldType:              "UnsupportedFieldType",
	UnexpectedMessageType:             "UnexpectedMessageType",
	InvalidMessageLength:              "InvalidMessageLength",
	MessageIncomplete:                 "MessageIncomplete",
	DescribeProtocolMessageCorrupted:  "DescribeProtocolMessageCorrupted",
	RecordDescriptionNotReceived:      "RecordDescriptionNotReceived",
	RecordNotSupported:                "RecordNotSupported",
	UnknownRecordName:                 "UnknownRecordName",
	RecordInfoCorrupted:               "RecordInfoCorrupted",
	InconsistentMessageSupport:        "InconsistentMessageSupport",
	ServerMessageNotSupported:         "ServerMessageNotSupported",
	LocalMessageNotSupportedByServer:  "LocalMessageNotSupportedByServer",
	InvalidPortValue:                  "InvalidPortValue",
	UnknownCodec:                      "UnknownCodec",
	InvalidFunctionArg:                "InvalidFunctionArg",
	InvalidConnectionHandle:           "InvalidConnectionHandle",
	ConnectionContextNotInitialized:   "ConnectionContextNotInitialized",
	ConnectionClosed:                  "ConnectionClosed",
	InvalidEventType:                  "InvalidEventType",
	InvalidSubscriptionId:             "InvalidSubscriptionId",
	InvalidSymbolName:                 "InvalidSymbolName",
	InvalidListener:                   "InvalidListener",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Info reports whether a kind is informational rather than an actual
// fault — BufferUnderflow and MessageIncomplete rewind/wait rather than
// propagate, ConnectionGracefullyClosed logs at info.
func (k Kind) Info() bool {
	switch k {
	case ConnectionGracefullyClosed, BufferUnderflow, MessageIncomplete:
		return true
	default:
		return false
	}
}

// ErrKind is the concrete error type every core package returns.
type ErrKind struct {
	Kind Kind
	Msg  string
}

func NewErr(k Kind, format string, a ...any) *ErrKind {
	return &ErrKind{Kind: k, Msg: fmt.Sprintf(format, a...)}
}

func (e *ErrKind) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func KindOf(err error) (Kind, bool) {
	var ek *ErrKind
	if errors.As(err, &ek) {
		return ek.Kind, true
	}
	return 0, false
}

func Is(err error, k Kind) bool {
	kind, ok := KindOf(err)
	return ok && kind == k
}

//
// syscall-level classification (used to pick the transport Kind to
// report: ConnectionRefused / ConnectionReset / ConnectionTimedOut /
// NetworkUnreachable / HostNotFound / GenericSocket)
//

func IsErrConnectionRefused(err error) bool { return errors.Is(err, syscall.ECONNREFUSED) }
func IsErrConnectionReset(err error) bool   { return errors.Is(err, syscall.ECONNRESET) }
func IsErrBrokenPipe(err error) bool        { return errors.Is(err, syscall.EPIPE) }
func IsErrTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
func IsErrNetUnreachable(err error) bool { return errors.Is(err, syscall.ENETUNREACH) }
func IsErrDNSLookup(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func IsRetriableConnErr(err error) bool {
	return IsErrConnectionRefused(err) || IsErrConnectionReset(err) || IsErrBrokenPipe(err)
}

// ClassifyDial maps a net.Dial-family error to the closest spec Kind.
func ClassifyDial(err error) Kind {
	switch {
	case err == nil:
		return -1
	case IsErrDNSLookup(err):
		return HostNotFound
	case IsErrConnectionRefused(err):
		return ConnectionRefused
	case IsErrConnectionReset(err):
		return ConnectionReset
	case IsErrTimeout(err):
		return ConnectionTimedOut
	case IsErrNetUnreachable(err):
		return NetworkUnreachable
	default:
		return GenericSocket
	}
}

//
// per-goroutine last-error cell: each goroutine owns a slot; Set is
// idempotent (first error wins) and Pop clears it. The master
// (initializing) goroutine gets a dedicated slot via NewLastError so
// errors set before per-goroutine storage exists are not lost.
//

type LastError struct {
	mu  sync.Mutex
	err error
}

func NewLastError() *LastError { return &LastError{} }

func (l *LastError) Set(err error) {
	l.mu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.mu.Unlock()
}

func (l *LastError) Pop() error {
	l.mu.Lock()
	err := l.err
	l.err = nil
	l.mu.Unlock()
	return err
}

func (l *LastError) Peek() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Exitf reports an unrecoverable startup failure (e.g. a malformed
// built-in record schema) and terminates the process.
func Exitf(format string, a ...any) {
	fmt.Fprintln(os.Stderr, "FATAL ERROR: "+fmt.Sprintf(format, a...))
	os.Exit(1)
}

// IsEOF reports whether err is (or wraps) an EOF-like condition from a
// closed connection.
func IsEOF(err error) bool {
	return err != nil && (errors.Is(err, os.ErrClosed) || err.Error() == "EOF")
}
