package engine

import (
	"errors"

	"github.com/perch3d/sceneql/internal/bind"
	"github.com/perch3d/sceneql/internal/exec"
	"github.com/perch3d/sceneql/internal/parser"
)

// ErrorClass is the top-level error taxonomy. Every failure Execute
// returns falls into exactly one class, so callers can branch on class
// without inspecting concrete types.
type ErrorClass int

const (
	// ClassNone marks a successful outcome in audit entries.
	ClassNone ErrorClass = iota

	// ClassSyntax: the query text does not parse.
	ClassSyntax

	// ClassSemantic: the query parses but violates the schema.
	ClassSemantic

	// ClassExecution: the query is valid but execution failed.
	ClassExecution

	// ClassInternal: admission rejection or an unexpected failure.
	ClassInternal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "ok"
	case ClassSyntax:
		return "syntax"
	case ClassSemantic:
		return "semantic"
	case ClassExecution:
		return "execution"
	default:
		return "internal"
	}
}

// Classify maps an Execute error to its class.
func Classify(err error) ErrorClass {
	var syn *parser.SyntaxError
	var sem *bind.SemanticError
	var ex *exec.Error
	switch {
	case err == nil:
		return ClassNone
	case errors.As(err, &syn):
		return ClassSyntax
	case errors.As(err, &sem):
		return ClassSemantic
	case errors.As(err, &ex):
		return ClassExecution
	default:
		return ClassInternal
	}
}
