package proxy

import (
	"net/http"
	"time"

	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/bricks-cloud/byokllm/internal/util"
	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

func getCreateEmbeddingsHandler(prod, private bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_create_embeddings_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		req := &goopenai.EmbeddingRequest{}
		if err := c.ShouldBindJSON(req); err != nil {
			telemetry.Incr("byokllm.proxy.get_create_embeddings_handler.request_body_error", nil, 1)
			logError(log, "error when parsing embedding request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] failed to parse embedding request body")
			return
		}

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_embeddings_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.CreateEmbeddings(ctx, req)
		if err != nil {
			relayError(c, log, prod, cid, "get_create_embeddings_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_create_embeddings_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_create_embeddings_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai create embeddings response",
				zap.String(correlationId, cid),
				zap.String("model", string(res.Model)),
				zap.Int("number_of_embeddings", len(res.Data)),
				zap.Int("prompt_tokens", res.Usage.PromptTokens),
				zap.Int("total_tokens", res.Usage.TotalTokens),
			)
		}

		c.JSON(http.StatusOK, res)
	}
}
