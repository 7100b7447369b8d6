package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

func (e *NotFoundError) Code() string {
	return "NOT_FOUND"
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents invalid input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UnknownDomainError is returned when a domain code or internal name has no match.
type UnknownDomainError struct {
	DomainCode int
	Name       string
}

func (e *UnknownDomainError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown domain name: %s", e.Name)
	}
	return fmt.Sprintf("unknown domain code: %d", e.DomainCode)
}

func (e *UnknownDomainError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *UnknownDomainError) Code() string {
	return "UNKNOWN_DOMAIN"
}

// NewUnknownDomainCodeError creates an UnknownDomainError for a numeric code
func NewUnknownDomainCodeError(code int) *UnknownDomainError {
	return &UnknownDomainError{DomainCode: code}
}

// NewUnknownDomainNameError creates an UnknownDomainError for an internal name
func NewUnknownDomainNameError(name string) *UnknownDomainError {
	return &UnknownDomainError{Name: name}
}

// MalformedValueError is returned when a raw value cannot be coerced into a domain.
type MalformedValueError struct {
	Domain string
	Value  interface{}
	Cause  error
}

func (e *MalformedValueError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed %s value '%v': %v", e.Domain, e.Value, e.Cause)
	}
	return fmt.Sprintf("malformed %s value '%v'", e.Domain, e.Value)
}

func (e *MalformedValueError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *MalformedValueError) Code() string {
	return "MALFORMED_VALUE"
}

func (e *MalformedValueError) Unwrap() error {
	return e.Cause
}

// NewMalformedValueError creates a new MalformedValueError
func NewMalformedValueError(domain string, value interface{}, cause error) *MalformedValueError {
	return &MalformedValueError{Domain: domain, Value: value, Cause: cause}
}

// UnknownColumnError is returned when a column name is absent from table metadata.
// Column names never reach SQL text without passing this check.
type UnknownColumnError struct {
	Table  string
	Column string
}

func (e *UnknownColumnError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("unknown column '%s' in table '%s'", e.Column, e.Table)
	}
	return fmt.Sprintf("unknown column '%s'", e.Column)
}

func (e *UnknownColumnError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *UnknownColumnError) Code() string {
	return "UNKNOWN_COLUMN"
}

// NewUnknownColumnError creates a new UnknownColumnError
func NewUnknownColumnError(table, column string) *UnknownColumnError {
	return &UnknownColumnError{Table: table, Column: column}
}

// InvalidCriterionError is returned for a wrongly shaped criterion value (IN, BETWEEN).
type InvalidCriterionError struct {
	Op      string
	Message string
}

func (e *InvalidCriterionError) Error() string {
	return fmt.Sprintf("invalid criterion %s: %s", e.Op, e.Message)
}

func (e *InvalidCriterionError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *InvalidCriterionError) Code() string {
	return "INVALID_CRITERION"
}

// NewInvalidCriterionError creates a new InvalidCriterionError
func NewInvalidCriterionError(op, message string) *InvalidCriterionError {
	return &InvalidCriterionError{Op: op, Message: message}
}

// FormulaValidationError reports a formula that failed to parse or validate.
type FormulaValidationError struct {
	Formula string
	Reason  string
}

func (e *FormulaValidationError) Error() string {
	return fmt.Sprintf("Invalid formula '%s': %s", e.Formula, e.Reason)
}

func (e *FormulaValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *FormulaValidationError) Code() string {
	return "INVALID_FORMULA"
}

// NewFormulaValidationError creates a new FormulaValidationError
func NewFormulaValidationError(formula, reason string) *FormulaValidationError {
	return &FormulaValidationError{Formula: formula, Reason: reason}
}

// DatabaseError wraps a driver error raised while executing DDL or DML.
type DatabaseError struct {
	Op    string
	Cause error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Op, e.Cause)
}

func (e *DatabaseError) HTTPStatus() int {
	return http.StatusInternalServerError
}

func (e *DatabaseError) Code() string {
	return "OPERATION_FAILED"
}

func (e *DatabaseError) Unwrap() error {
	return e.Cause
}

// NewDatabaseError creates a new DatabaseError
func NewDatabaseError(op string, cause error) *DatabaseError {
	return &DatabaseError{Op: op, Cause: cause}
}

// UnauthorizedError represents authentication failures
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unauthorized: %s", e.Reason)
	}
	return "unauthorized"
}

func (e *UnauthorizedError) HTTPStatus() int {
	return http.StatusUnauthorized
}

func (e *UnauthorizedError) Code() string {
	return "UNAUTHORIZED"
}

// NewUnauthorizedError creates a new UnauthorizedError
func NewUnauthorizedError(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

// ConflictError represents a conflict with existing data
type ConflictError struct {
	Resource string
	Field    string
	Value    string
}

func (e *ConflictError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("%s already exists with %s='%s'", e.Resource, e.Field, e.Value)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

func (e *ConflictError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *ConflictError) Code() string {
	return "CONFLICT"
}

// NewConflictError creates a new ConflictError
func NewConflictError(resource, field, value string) *ConflictError {
	return &ConflictError{Resource: resource, Field: field, Value: value}
}

// Helper functions for error checking

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// IsUnknownDomain checks if an error is an UnknownDomainError
func IsUnknownDomain(err error) bool {
	var target *UnknownDomainError
	return errors.As(err, &target)
}

// IsMalformedValue checks if an error is a MalformedValueError
func IsMalformedValue(err error) bool {
	var target *MalformedValueError
	return errors.As(err, &target)
}

// IsUnknownColumn checks if an error is an UnknownColumnError
func IsUnknownColumn(err error) bool {
	var target *UnknownColumnError
	return errors.As(err, &target)
}

// IsInvalidCriterion checks if an error is an InvalidCriterionError
func IsInvalidCriterion(err error) bool {
	var target *InvalidCriterionError
	return errors.As(err, &target)
}

// IsFormulaValidation checks if an error is a FormulaValidationError
func IsFormulaValidation(err error) bool {
	var target *FormulaValidationError
	return errors.As(err, &target)
}

// IsDatabase checks if an error is a DatabaseError
func IsDatabase(err error) bool {
	var target *DatabaseError
	return errors.As(err, &target)
}

// IsUnauthorized checks if an error is an UnauthorizedError
func IsUnauthorized(err error) bool {
	var unauthorized *UnauthorizedError
	return errors.As(err, &unauthorized)
}

// IsConflict checks if an error is a ConflictError
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// GetHTTPStatus returns the HTTP status code for an error
// Returns 500 if the error doesn't implement AppError
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
// Returns "UNKNOWN_ERROR" if the error doesn't implement AppError
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}
