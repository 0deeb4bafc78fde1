package response

import (
	"log"
	"net/http"

	"anoa.com/yogaschool/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (string, error) {
	userID := c.GetString("user_id")
	if userID == "" {
		return "", apperror.ErrUnauthorized
	}
	return userID, nil
}

// ResolveActor returns the user a request acts for. Chat routes name the actor
// explicitly in the path or body; an empty claim falls back to the token subject
// and a claim naming someone else is rejected.
func ResolveActor(c *gin.Context, claimed string) (string, error) {
	authID := c.GetString("user_id")
	if claimed == "" {
		if authID == "" {
			return "", apperror.Wrap(apperror.ErrBadRequest, "User ID is required")
		}
		return authID, nil
	}
	if authID != "" && authID != claimed {
		return "", apperror.Wrap(apperror.ErrForbidden, "Cannot act on behalf of another user")
	}
	return claimed, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"error": apperror.Message(err)})
}
