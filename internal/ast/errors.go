package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for AST-level concerns, mirroring the teacher's
// package-level sentinel-error style (pkg/executor/errors.go).
var (
	ErrEmptyEdgeMap   = errors.New("node execute() returned no edge")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrUnknownEdge    = errors.New("edge not declared by node type")
)

// ParseError carries a JSON-pointer-shaped path into the source document,
// per SPEC_FULL §4.2.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Path, e.Reason)
}

// NewParseError builds a ParseError for the given JSON-pointer path.
func NewParseError(path, reason string) *ParseError {
	return &ParseError{Path: path, Reason: reason}
}

// ErrUnknownNodeTypeAt returns a *ParseError at path whose Reason carries
// ErrUnknownNodeType's message and the offending type. The sentinel is not
// wrapped, so errors.Is(err, ErrUnknownNodeType) reports false.
func ErrUnknownNodeTypeAt(path string, nodeType NodeType) error {
	return &ParseError{Path: path, Reason: fmt.Sprintf("%v: %q", ErrUnknownNodeType, nodeType)}
}

// ErrUnknownEdgeAt returns a *ParseError at path whose Reason carries
// ErrUnknownEdge's message, the node type and the edge name. The sentinel is
// not wrapped, so errors.Is(err, ErrUnknownEdge) reports false.
func ErrUnknownEdgeAt(path string, nodeType NodeType, edge string) error {
	return &ParseError{Path: path, Reason: fmt.Sprintf("%v: node type %q does not declare edge %q", ErrUnknownEdge, nodeType, edge)}
}
