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

func getCreateImageHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_image_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.ImageRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_image_handler.request_body_error", nil, 1)
			logError(log, "error when parsing image generation request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse image generation request body")
			return
		}

		logCreateImageRequest(log, req, prod, private, cid)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_image_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateImage(ctx, req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_image_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_image_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_image_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai create image response", zap.String(correlationId, cid), zap.Int64("created", res.Created), zap.Int("number_of_images", len(res.Data)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func logCreateImageRequest(log *zap.Logger, r *goopenai.ImageRequest, prod, private bool, cid string) {
	if prod {
		fields := []zapcore.Field{
			zap.String(correlationId, cid),
			zap.String("model", r.Model),
			zap.String("size", r.Size),
			zap.Int("n", r.N),
		}

		if !private {
			fields = append(fields, zap.String("prompt", r.Prompt))
		}

		log.Info("openai create image request", fields...)
	}
}
