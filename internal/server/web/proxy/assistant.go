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

func getCreateAssistantHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_assistant_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.AssistantRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_assistant_handler.request_body_error", nil, 1)
			logError(log, "error when parsing assistant request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse assistant request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_assistant_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateAssistant(ctx, req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_assistant_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_assistant_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_assistant_handler.latency", time.Since(start), nil, 1)

		logAssistantResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getListAssistantsHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_list_assistants_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_assistants_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ListAssistants(ctx)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_assistants_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_list_assistants_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_list_assistants_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai list assistants response", zap.String(correlationId, cid), zap.Int("number_of_assistants", len(res.Assistants)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getRetrieveAssistantHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_assistant_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_assistant_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.RetrieveAssistant(ctx, c.Param("assistant_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_assistant_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_assistant_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_assistant_handler.latency", time.Since(start), nil, 1)

		logAssistantResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getModifyAssistantHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_modify_assistant_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.AssistantRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_modify_assistant_handler.request_body_error", nil, 1)
			logError(log, "error when parsing assistant request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse assistant request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_assistant_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ModifyAssistant(ctx, c.Param("assistant_id"), req)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_assistant_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_modify_assistant_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_modify_assistant_handler.latency", time.Since(start), nil, 1)

		logAssistantResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getDeleteAssistantHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_delete_assistant_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_assistant_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.DeleteAssistant(ctx, c.Param("assistant_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_assistant_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_delete_assistant_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_delete_assistant_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai delete assistant response", zap.String(correlationId, cid), zap.String("id", res.ID), zap.Bool("deleted", res.Deleted))
		}

		c.JSON(http.StatusOK, res)
	}
}

func logAssistantResponse(log *zap.Logger, a *goopenai.Assistant, prod, private bool, cid string) {
	if prod {
		fields := []zapcore.Field{
			zap.String(correlationId, cid),
			zap.String("id", a.ID),
			zap.String("object", a.Object),
			zap.Int64("created_at", a.CreatedAt),
			zap.String("model", a.Model),
			zap.Any("tools", a.Tools),
			zap.Stringp("name", a.Name),
			zap.Stringp("description", a.Description),
		}

		if !private && a.Instructions != nil {
			fields = append(fields, zap.String("instructions", *a.Instructions))
		}

		log.Info("openai assistant response", fields...)
	}
}
