package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/bricks-cloud/byokllm/internal/util"
	"github.com/gin-gonic/gin"
)

// The responses family is relayed as opaque JSON. The payloads evolve too
// quickly upstream to pin to a schema.

func getCreateResponseHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_response_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			telemetry.Incr("byokllm.proxy.get_create_response_handler.request_body_error", nil, 1)
			logError(log, "error when reading response request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to read response request body")
			return
		}

		if !json.Valid(body) {
			telemetry.Incr("byokllm.proxy.get_create_response_handler.request_body_error", nil, 1)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] response request body is not valid json")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_response_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateResponse(ctx, body)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_response_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_response_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_response_handler.latency", time.Since(start), nil, 1)

		c.Data(http.StatusOK, "application/json", res)
	}
}

func getRetrieveResponseHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_response_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_response_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.RetrieveResponse(ctx, c.Param("response_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_response_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_response_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_response_handler.latency", time.Since(start), nil, 1)

		c.Data(http.StatusOK, "application/json", res)
	}
}

func getDeleteResponseHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_delete_response_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_response_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.DeleteResponse(ctx, c.Param("response_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_response_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_delete_response_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_delete_response_handler.latency", time.Since(start), nil, 1)

		c.Data(http.StatusOK, "application/json", res)
	}
}

func getCancelResponseHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_cancel_response_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_cancel_response_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CancelResponse(ctx, c.Param("response_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_cancel_response_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_cancel_response_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_cancel_response_handler.latency", time.Since(start), nil, 1)

		c.Data(http.StatusOK, "application/json", res)
	}
}
