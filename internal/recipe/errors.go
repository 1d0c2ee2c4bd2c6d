package recipe

import (
	"errors"
	"fmt"
)

// ErrMissingName is returned when a recipe does not assign pkgname.
var ErrMissingName = errors.New("recipe does not define pkgname")

// ErrPackageNotFound is returned by recipe sources when neither the upstream
// archive nor a local fallback exists for a package.
var ErrPackageNotFound = errors.New("package not found")

// SyntaxError reports malformed recipe text.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// UndefinedVariableError reports a reference to a variable that was not
// assigned earlier in the file.
type UndefinedVariableError struct {
	Name string
	Line int
	Col  int
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable $%s at %d:%d", e.Name, e.Line, e.Col)
}
