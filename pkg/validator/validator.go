package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			message := getFieldErrorMessage(fieldError)
			messages = append(messages, message)
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	case "dive", "notblank":
		return fmt.Sprintf("%s must not contain empty values", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Name":             "Name",
		"Email":            "Email",
		"Password":         "Password",
		"NewPassword":      "New password",
		"SecurityQuestion": "Security question",
		"SecurityAnswer":   "Security answer",
		"UserID":           "User ID",
		"UserID1":          "User ID 1",
		"UserID2":          "User ID 2",
		"Members":          "Members",
		"NewMembers":       "New members",
		"TargetChatIDs":    "Target chats",
		"MessageID":        "Message ID",
		"CreatedBy":        "Creator",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
