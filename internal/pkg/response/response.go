package response

import "github.com/gin-gonic/gin"

// Envelope uniforme de la API: {"success": bool, "data"|"error": ...}.

func Success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func ErrorWithMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// ErrorWithDetails agrega contexto legible sin perder el error original.
func ErrorWithDetails(c *gin.Context, status int, message string, details any) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
		"details": details,
	})
}
