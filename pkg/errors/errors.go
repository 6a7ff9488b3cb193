package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// MappingError carries the position in the mapping surface (entity path,
// line item, column, role) that a request failed against.
type MappingError struct {
	EntityPath string
	LineItem   string
	Column     string
	Role       string
	Message    string
}

func NewMappingError(msg string) *MappingError {
	return &MappingError{
		Message: msg,
	}
}

func WrapMappingError(e error) *MappingError {
	if e == nil {
		return nil
	}

	if mappingError, ok := e.(*MappingError); ok {
		return mappingError
	}

	return &MappingError{
		Message: e.Error(),
	}
}

// NewMappingErrorf creates a new MappingError with a formatted message
func NewMappingErrorf(format string, args ...any) *MappingError {
	return &MappingError{
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *MappingError) Error() string {
	path := []string{}
	if e.EntityPath != "" {
		path = append(path, fmt.Sprintf("entity path '%s'", e.EntityPath))
	}
	if e.LineItem != "" {
		path = append(path, fmt.Sprintf("line item '%s'", e.LineItem))
	}
	if e.Column != "" {
		path = append(path, fmt.Sprintf("column '%s'", e.Column))
	}
	if e.Role != "" {
		path = append(path, fmt.Sprintf("role '%s'", e.Role))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *MappingError) AddEntityPath(pathKey string) *MappingError {
	e.EntityPath = pathKey
	return e
}

func (e *MappingError) AddLineItem(lineItemCode string) *MappingError {
	e.LineItem = lineItemCode
	return e
}

func (e *MappingError) AddColumn(columnName string) *MappingError {
	e.Column = columnName
	return e
}

func (e *MappingError) AddRole(role string) *MappingError {
	e.Role = role
	return e
}

func (e *MappingError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).
		AddMetaValue("entity_path", e.EntityPath).
		AddMetaValue("line_item_code", e.LineItem).
		AddMetaValue("column_name", e.Column).
		AddMetaValue("role", e.Role)
}

func IsMappingError(err error) bool {
	_, ok := err.(*MappingError)
	return ok
}
