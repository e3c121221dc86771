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
)

func getCreateThreadHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_thread_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.ThreadRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_thread_handler.request_body_error", nil, 1)
			logError(log, "error when parsing thread request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse thread request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_thread_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateThread(ctx, req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_thread_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_thread_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_thread_handler.latency", time.Since(start), nil, 1)

		logThreadResponse(log, res, prod, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getRetrieveThreadHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_thread_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_thread_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.RetrieveThread(ctx, c.Param("thread_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_thread_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_thread_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_thread_handler.latency", time.Since(start), nil, 1)

		logThreadResponse(log, res, prod, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getModifyThreadHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_modify_thread_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &openai.ModifyThreadRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_modify_thread_handler.request_body_error", nil, 1)
			logError(log, "error when parsing modify thread request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse modify thread request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_thread_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ModifyThread(ctx, c.Param("thread_id"), req)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_thread_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_modify_thread_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_modify_thread_handler.latency", time.Since(start), nil, 1)

		logThreadResponse(log, res, prod, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getDeleteThreadHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_delete_thread_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_thread_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.DeleteThread(ctx, c.Param("thread_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_thread_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_delete_thread_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_delete_thread_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai delete thread response", zap.String(correlationId, cid), zap.String("id", res.ID), zap.Bool("deleted", res.Deleted))
		}

		c.JSON(http.StatusOK, res)
	}
}

func logThreadResponse(log *zap.Logger, t *goopenai.Thread, prod bool, cid string) {
	if prod {
		log.Info("openai thread response",
			zap.String(correlationId, cid),
			zap.String("id", t.ID),
			zap.String("object", t.Object),
			zap.Int64("created_at", t.CreatedAt),
		)
	}
}
