// Package apperror defines the error kinds reported to realtime and HTTP callers.
package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error for reporting
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindValidation
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindDependency:
		return "dependency"
	default:
		return "internal"
	}
}

// Error is a classified error with a stable code
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a classified error
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a copy of a classified error
func Wrap(base *Error, err error) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: err}
}

// Dependency wraps a storage or cache failure
func Dependency(message string, err error) *Error {
	return &Error{Kind: KindDependency, Code: "dependency_failure", Message: message, Err: err}
}

var (
	ErrMissingCredential = New(KindAuthentication, "missing_credential", "Unauthorized - No token provided")
	ErrInvalidCredential = New(KindAuthentication, "invalid_credential", "Unauthorized - Invalid token")

	ErrNotSender       = New(KindAuthorization, "not_sender", "Only the sender can edit this message")
	ErrCannotDelete    = New(KindAuthorization, "cannot_delete", "Only the sender, a manager or an admin can delete this message")
	ErrNotGroupMember  = New(KindAuthorization, "not_group_member", "You are not a member of this group")
	ErrNotAdmin        = New(KindAuthorization, "not_admin", "Admin role required")
	ErrUserNotFound    = New(KindNotFound, "user_not_found", "User not found")
	ErrGroupNotFound   = New(KindNotFound, "group_not_found", "Group not found")
	ErrMessageNotFound = New(KindNotFound, "message_not_found", "Message not found")

	ErrEmptyMessage       = New(KindValidation, "empty_message", "Message text or file is required")
	ErrNoTargetGroup      = New(KindValidation, "no_target_group", "Group ID is required")
	ErrEditWindowExpired  = New(KindValidation, "edit_window_expired", "Messages can only be edited within 15 minutes")
	ErrMessageDeleted     = New(KindValidation, "message_deleted", "Message has been deleted")
	ErrNoMessageIDs       = New(KindValidation, "no_message_ids", "At least one message ID is required")
	ErrNoForwardGroups    = New(KindValidation, "no_forward_groups", "At least one destination group is required")
	ErrInvalidRequestBody = New(KindValidation, "invalid_request", "Invalid request body")
)

// KindOf returns the kind of err, or KindInternal when err is unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of err, or "internal_error"
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// MessageOf returns the caller-facing message for err. Causes are never exposed.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus maps err to a response status
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindValidation:
		return fiber.StatusBadRequest
	case KindDependency:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Payload is the uniform reported-error shape
type Payload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToPayload converts err to its reported shape
func ToPayload(err error) Payload {
	return Payload{Code: CodeOf(err), Message: MessageOf(err)}
}

// Respond writes err to an HTTP response in the uniform shape
func Respond(c *fiber.Ctx, err error) error {
	return c.Status(HTTPStatus(err)).JSON(fiber.Map{
		"success": false,
		"error":   ToPayload(err),
	})
}
