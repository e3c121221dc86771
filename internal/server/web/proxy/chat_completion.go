package proxy

import (
	"net/http"
	"time"

	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/bricks-cloud/byokllm/internal/util"
	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func getCreateChatCompletionHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_chat_completion_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.ChatCompletionRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_chat_completion_handler.request_body_error", nil, 1)
			logError(log, "error when parsing chat completion request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse chat completion request body")
			return
		}

		logCreateChatCompletionRequest(log, req, prod, private, cid)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_chat_completion_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateChatCompletion(ctx, req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_chat_completion_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_chat_completion_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_chat_completion_handler.latency", time.Since(start), nil, 1)

		logChatCompletionResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func logCreateChatCompletionRequest(log *zap.Logger, r *goopenai.ChatCompletionRequest, prod, private bool, cid string) {
	if prod {
		fields := []zapcore.Field{
			zap.String(correlationId, cid),
			zap.String("model", r.Model),
			zap.Int("number_of_messages", len(r.Messages)),
			zap.Int("max_tokens", r.MaxTokens),
			zap.Float32("temperature", r.Temperature),
		}

		if !private {
			fields = append(fields, zap.Any("messages", r.Messages))
		}

		log.Info("openai create chat completion request", fields...)
	}
}

func logChatCompletionResponse(log *zap.Logger, r *goopenai.ChatCompletionResponse, prod, private bool, cid string) {
	if prod {
		fields := []zapcore.Field{
			zap.String(correlationId, cid),
			zap.String("id", r.ID),
			zap.String("object", r.Object),
			zap.Int64("created", r.Created),
			zap.String("model", r.Model),
			zap.Int("prompt_tokens", r.Usage.PromptTokens),
			zap.Int("completion_tokens", r.Usage.CompletionTokens),
			zap.Int("total_tokens", r.Usage.TotalTokens),
		}

		if !private {
			fields = append(fields, zap.Any("choices", r.Choices))
		}

		log.Info("openai create chat completion response", fields...)
	}
}
