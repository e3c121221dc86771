package util

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const logKey = "logger"

func NewUuid() string {
	return uuid.New().String()
}

// SetLogToCtx stashes a request-scoped logger so handlers pick up the
// correlation id field without threading it through every call.
func SetLogToCtx(c *gin.Context, log *zap.Logger) {
	c.Set(logKey, log)
}

func GetLogFromCtx(c *gin.Context) *zap.Logger {
	raw, exists := c.Get(logKey)
	if !exists {
		return zap.NewNop()
	}

	log, ok := raw.(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}

	return log
}
