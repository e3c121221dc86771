package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/bricks-cloud/byokllm/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	goopenai "github.com/sashabaranov/go-openai"
)

type notAuthorizedError interface {
	Authenticated()
}

type validationError interface {
	Validation()
}

func JSON(c *gin.Context, code int, message string) {
	c.JSON(code, &goopenai.ErrorResponse{
		Error: &goopenai.APIError{
			Message: message,
			Code:    strconv.Itoa(code),
		},
	})
}

func getMiddleware(prod bool, log *zap.Logger, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "[BYOKLLM] request is empty")
			c.Abort()
			return
		}

		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, OpenAI-Beta")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		if c.FullPath() == "/" || c.FullPath() == "/health" {
			return
		}

		cid := util.NewUuid()
		c.Set(correlationId, cid)
		util.SetLogToCtx(c, log)
		start := time.Now()

		defer func() {
			dur := time.Since(start)
			latency := int(dur.Milliseconds())

			if !prod {
				log.Sugar().Infof("%s | %d | %s | %s | %dms", prefix, c.Writer.Status(), c.Request.Method, c.FullPath(), latency)
			}

			telemetry.Timing("byokllm.proxy.get_middleware.latency_in_ms", dur, nil, 1)

			if prod {
				log.Info("response to relay",
					zap.String(correlationId, cid),
					zap.String("model", c.GetString("model")),
					zap.Int("code", c.Writer.Status()),
					zap.String("method", c.Request.Method),
					zap.String("path", c.FullPath()),
					zap.Int("latencyInMs", latency),
				)
			}

			telemetry.Incr("byokllm.proxy.get_middleware.responses", []string{
				"status:" + strconv.Itoa(c.Writer.Status()),
			}, 1)
		}()

		if len(c.FullPath()) == 0 {
			telemetry.Incr("byokllm.proxy.get_middleware.route_does_not_exist", nil, 1)
			JSON(c, http.StatusNotFound, "[BYOKLLM] route not supported")
			c.Abort()
			return
		}

		if c.Request.Method == http.MethodPost && strings.HasPrefix(c.ContentType(), "application/json") && c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				logError(log, "error when reading request body", prod, cid, err)
				JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to read request body")
				c.Abort()
				return
			}

			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

			model := gjson.GetBytes(body, "model")
			if model.Exists() {
				c.Set("model", model.Str)
			}
		}

		c.Next()
	}
}
