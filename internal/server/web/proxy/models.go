package proxy

import (
	"net/http"
	"time"

	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/bricks-cloud/byokllm/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func getListModelsHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_list_models_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_models_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ListModels(ctx)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_models_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_list_models_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_list_models_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai list models response", zap.String(correlationId, cid), zap.Int("number_of_models", len(res.Models)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getRetrieveModelHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_model_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_model_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.RetrieveModel(ctx, c.Param("model"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_model_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_model_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_model_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai retrieve model response", zap.String(correlationId, cid), zap.String("id", res.ID), zap.String("owned_by", res.OwnedBy))
		}

		c.JSON(http.StatusOK, res)
	}
}
