package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// The desktop client consumes bare JSON bodies: plain objects and arrays on
// success, {"message": ...} on failure. There is no envelope.

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}
