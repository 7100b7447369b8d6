package rest

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kkkppp/p2proto/pkg/auth"
	"github.com/kkkppp/p2proto/pkg/constants"
	"github.com/kkkppp/p2proto/pkg/errors"
)

// operationFailed replaces the message of every 5xx response; driver text
// stays in the server log
const operationFailed = "operation failed"

// GetUserFromContext extracts the authenticated user from gin.Context
func GetUserFromContext(c *gin.Context) *auth.UserSession {
	userInterface, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := userInterface.(auth.UserSession)
	if !ok {
		return nil
	}
	return &user
}

// currentUserID is the id recorded on lifecycle history and events
func currentUserID(c *gin.Context) int64 {
	if user := GetUserFromContext(c); user != nil {
		return user.ID
	}
	return 0
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	code := errors.GetHTTPStatus(err)
	errorCode := errors.GetErrorCode(err)
	message := err.Error()

	if code >= 500 {
		log.Printf("❌ ERROR [%d] %s %s: %s", code, c.Request.Method, c.Request.URL.Path, message)
		message = operationFailed
	}

	c.JSON(code, gin.H{
		constants.ResponseError: message,
		constants.FieldMessage:  message,
		constants.FieldCode:     errorCode,
		constants.ResponseData:  nil,
	})
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleGetEnvelope executes a read action and returns the result wrapped in a JSON key
// Response: { [key]: result }
func HandleGetEnvelope(c *gin.Context, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}

// HandleCreateEnvelope binds the body into obj, runs the create action and
// returns what it produced
// Response: { constants.FieldMessage: successMsg, [key]: result }
func HandleCreateEnvelope(c *gin.Context, key string, successMsg string, obj interface{}, action func() (interface{}, error)) {
	if !BindJSON(c, obj) {
		return
	}
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{constants.FieldMessage: successMsg, key: result})
}

// HandleUpdateEnvelope executes an update action and returns a success message
// Response: { constants.FieldMessage: successMsg }
func HandleUpdateEnvelope(c *gin.Context, successMsg string, obj interface{}, action func() error) {
	if !BindJSON(c, obj) {
		return
	}
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.FieldMessage: successMsg})
}

// HandleDeleteEnvelope executes a delete action and returns a success message
// Response: { constants.FieldMessage: successMsg }
func HandleDeleteEnvelope(c *gin.Context, successMsg string, action func() error) {
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.FieldMessage: successMsg})
}
