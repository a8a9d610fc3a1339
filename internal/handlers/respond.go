package handlers

import "github.com/gin-gonic/gin"

// respondError emits the error envelope every endpoint shares: a stable
// machine-readable kind plus a human-readable message. Internal details
// stay in the logs.
func respondError(c *gin.Context, status int, kind string, message string) {
	c.JSON(status, gin.H{
		"error":   kind,
		"message": message,
	})
}
