package bind

import "fmt"

// SemanticErrorKind categorizes binding failures.
type SemanticErrorKind string

const (
	// KindUnknownEntityKind means the FROM clause names a kind the
	// catalog does not declare.
	KindUnknownEntityKind SemanticErrorKind = "UNKNOWN_ENTITY_KIND"

	// KindUnknownField means a path segment does not resolve to a
	// declared field of the kind in scope.
	KindUnknownField SemanticErrorKind = "UNKNOWN_FIELD"

	// KindTypeMismatch means a literal's type is incompatible with the
	// field it is compared against, or a non-relation field is used as a
	// traversal hop.
	KindTypeMismatch SemanticErrorKind = "TYPE_MISMATCH"

	// KindRelationshipDepthExceeded means a field path traverses more
	// relationship hops than the configured maximum.
	KindRelationshipDepthExceeded SemanticErrorKind = "RELATIONSHIP_DEPTH_EXCEEDED"

	// KindInvalidOperatorForType means the operator is not defined for
	// the field's declared type (LIKE on a number, ORDER BY on a vector).
	KindInvalidOperatorForType SemanticErrorKind = "INVALID_OPERATOR_FOR_TYPE"
)

// SemanticError reports a query that parsed but does not type-check
// against the catalog. Path is the offending field path (or kind name for
// KindUnknownEntityKind).
type SemanticError struct {
	Kind   SemanticErrorKind
	Path   string
	Detail string
}

func (e *SemanticError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Path)
}
