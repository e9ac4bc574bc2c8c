package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SendErrorResponse sends a standardized error response
func SendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
	})
}

// AbortWithError sends a standardized error response and stops the handler chain
func AbortWithError(c *gin.Context, statusCode int, message string) {
	SendErrorResponse(c, statusCode, message)
	c.Abort()
}

// SplitList parses a comma separated query value, dropping blanks
func SplitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
