package proxy

import (
	"net/http"
	"time"

	"github.com/bricks-cloud/byokllm/internal/provider/openai"
	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/bricks-cloud/byokllm/internal/util"
	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func getCreateMessageHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_message_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.MessageRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_message_handler.request_body_error", nil, 1)
			logError(log, "error when parsing message request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse message request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_message_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateMessage(ctx, c.Param("thread_id"), req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_message_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_message_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_message_handler.latency", time.Since(start), nil, 1)

		logMessageResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getListMessagesHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_list_messages_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_messages_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ListMessages(ctx, c.Param("thread_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_list_messages_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_list_messages_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_list_messages_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai list messages response", zap.String(correlationId, cid), zap.Int("number_of_messages", len(res.Messages)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getRetrieveMessageHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_message_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_message_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.RetrieveMessage(ctx, c.Param("thread_id"), c.Param("message_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_message_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_message_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_message_handler.latency", time.Since(start), nil, 1)

		logMessageResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getModifyMessageHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_modify_message_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &openai.ModifyMessageRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_modify_message_handler.request_body_error", nil, 1)
			logError(log, "error when parsing modify message request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse modify message request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_message_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ModifyMessage(ctx, c.Param("thread_id"), c.Param("message_id"), req)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_message_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_modify_message_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_modify_message_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai modify message response", zap.String(correlationId, cid), zap.String("id", res.ID))
		}

		c.JSON(http.StatusOK, res)
	}
}

func logMessageResponse(log *zap.Logger, m *goopenai.Message, prod, private bool, cid string) {
	if prod {
		fields := []zapcore.Field{
			zap.String(correlationId, cid),
			zap.String("id", m.ID),
			zap.String("object", m.Object),
			zap.Int("created_at", m.CreatedAt),
			zap.String("thread_id", m.ThreadID),
			zap.String("role", m.Role),
		}

		if !private {
			fields = append(fields, zap.Any("content", m.Content))
		}

		log.Info("openai message response", fields...)
	}
}
