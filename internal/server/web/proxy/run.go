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

func getCreateRunHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_run_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.RunRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_run_handler.request_body_error", nil, 1)
			logError(log, "error when parsing run request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse run request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_run_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateRun(ctx, c.Param("thread_id"), req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_run_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_run_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_run_handler.latency", time.Since(start), nil, 1)

		logRunResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getListRunsHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_list_runs_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_runs_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ListRuns(ctx, c.Param("thread_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_list_runs_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_list_runs_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_list_runs_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai list runs response", zap.String(correlationId, cid), zap.Int("number_of_runs", len(res.Runs)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getRetrieveRunHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_run_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_run_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.RetrieveRun(ctx, c.Param("thread_id"), c.Param("run_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_run_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_run_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_run_handler.latency", time.Since(start), nil, 1)

		logRunResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getModifyRunHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_modify_run_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &openai.ModifyRunRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_modify_run_handler.request_body_error", nil, 1)
			logError(log, "error when parsing modify run request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse modify run request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_run_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ModifyRun(ctx, c.Param("thread_id"), c.Param("run_id"), req)
		if err != nil {
			relayError(c, log, prod, cid, "get_modify_run_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_modify_run_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_modify_run_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai modify run response", zap.String(correlationId, cid), zap.String("id", res.ID))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getCancelRunHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_cancel_run_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_cancel_run_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CancelRun(ctx, c.Param("thread_id"), c.Param("run_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_cancel_run_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_cancel_run_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_cancel_run_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai cancel run response", zap.String(correlationId, cid), zap.String("id", res.ID), zap.String("status", string(res.Status)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getSubmitToolOutputsHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_submit_tool_outputs_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.SubmitToolOutputsRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_submit_tool_outputs_handler.request_body_error", nil, 1)
			logError(log, "error when parsing submit tool outputs request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse submit tool outputs request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_submit_tool_outputs_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.SubmitToolOutputs(ctx, c.Param("thread_id"), c.Param("run_id"), req)
		if err != nil {
			relayError(c, log, prod, cid, "get_submit_tool_outputs_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_submit_tool_outputs_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_submit_tool_outputs_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai submit tool outputs response", zap.String(correlationId, cid), zap.String("id", res.ID), zap.String("status", string(res.Status)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getCreateThreadAndRunHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_thread_and_run_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &openai.CreateThreadAndRunRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_thread_and_run_handler.request_body_error", nil, 1)
			logError(log, "error when parsing thread and run request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse thread and run request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, true)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_thread_and_run_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateThreadAndRun(ctx, req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_thread_and_run_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_thread_and_run_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_thread_and_run_handler.latency", time.Since(start), nil, 1)

		logRunResponse(log, res, prod, private, cid)
		c.JSON(http.StatusOK, res)
	}
}

func logRunResponse(log *zap.Logger, r *goopenai.Run, prod, private bool, cid string) {
	if prod {
		fields := []zapcore.Field{
			zap.String(correlationId, cid),
			zap.String("id", r.ID),
			zap.String("object", r.Object),
			zap.Int64("created_at", r.CreatedAt),
			zap.String("thread_id", r.ThreadID),
			zap.String("assistant_id", r.AssistantID),
			zap.String("status", string(r.Status)),
			zap.String("model", r.Model),
		}

		if !private && r.Instructions != "" {
			fields = append(fields, zap.String("instructions", r.Instructions))
		}

		log.Info("openai run response", fields...)
	}
}
