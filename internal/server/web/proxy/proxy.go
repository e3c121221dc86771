package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	auth "github.com/bricks-cloud/byokllm/internal/authenticator"
	"github.com/bricks-cloud/byokllm/internal/config"
	"github.com/bricks-cloud/byokllm/internal/provider/openai"
	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	correlationId string = "correlationId"
)

type ProxyServer struct {
	server *http.Server
	log    *zap.Logger
}

func NewProxyServer(log *zap.Logger, mode, privacyMode string, cfg *config.Config) (*ProxyServer, error) {
	router := gin.New()
	prod := mode == "production"
	private := privacyMode == "strict"

	router.Use(getMiddleware(prod, log, "proxy"))

	client := http.Client{}
	baseUrl := cfg.OpenAiBaseUrl
	timeOut := cfg.UpstreamRequestTimeout

	router.GET("/", getGetHealthCheckHandler())
	router.GET("/health", getGetHealthCheckHandler())

	router.POST("/v1/chat/completions", getCreateChatCompletionHandler(prod, private, client, baseUrl, timeOut))
	router.POST("/v1/completions", getCreateCompletionHandler(prod, private, client, baseUrl, timeOut))
	router.POST("/v1/embeddings", getCreateEmbeddingsHandler(prod, private, client, baseUrl, timeOut))

	router.GET("/v1/models", getListModelsHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/models/:model", getRetrieveModelHandler(prod, client, baseUrl, timeOut))

	router.POST("/v1/images/generations", getCreateImageHandler(prod, private, client, baseUrl, timeOut))

	router.POST("/v1/assistants", getCreateAssistantHandler(prod, private, client, baseUrl, timeOut))
	router.GET("/v1/assistants", getListAssistantsHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/assistants/:assistant_id", getRetrieveAssistantHandler(prod, private, client, baseUrl, timeOut))
	router.POST("/v1/assistants/:assistant_id", getModifyAssistantHandler(prod, private, client, baseUrl, timeOut))
	router.DELETE("/v1/assistants/:assistant_id", getDeleteAssistantHandler(prod, client, baseUrl, timeOut))

	router.POST("/v1/threads", getCreateThreadHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/threads/:thread_id", getRetrieveThreadHandler(prod, client, baseUrl, timeOut))
	router.POST("/v1/threads/:thread_id", getModifyThreadHandler(prod, client, baseUrl, timeOut))
	router.DELETE("/v1/threads/:thread_id", getDeleteThreadHandler(prod, client, baseUrl, timeOut))

	router.POST("/v1/threads/:thread_id/messages", getCreateMessageHandler(prod, private, client, baseUrl, timeOut))
	router.GET("/v1/threads/:thread_id/messages", getListMessagesHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/threads/:thread_id/messages/:message_id", getRetrieveMessageHandler(prod, private, client, baseUrl, timeOut))
	router.POST("/v1/threads/:thread_id/messages/:message_id", getModifyMessageHandler(prod, client, baseUrl, timeOut))

	router.POST("/v1/threads/runs", getCreateThreadAndRunHandler(prod, private, client, baseUrl, timeOut))
	router.POST("/v1/threads/:thread_id/runs", getCreateRunHandler(prod, private, client, baseUrl, timeOut))
	router.GET("/v1/threads/:thread_id/runs", getListRunsHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/threads/:thread_id/runs/:run_id", getRetrieveRunHandler(prod, private, client, baseUrl, timeOut))
	router.POST("/v1/threads/:thread_id/runs/:run_id", getModifyRunHandler(prod, client, baseUrl, timeOut))
	router.POST("/v1/threads/:thread_id/runs/:run_id/cancel", getCancelRunHandler(prod, client, baseUrl, timeOut))
	router.POST("/v1/threads/:thread_id/runs/:run_id/submit_tool_outputs", getSubmitToolOutputsHandler(prod, client, baseUrl, timeOut))

	router.GET("/v1/files", getListFilesHandler(prod, client, baseUrl, timeOut))
	router.POST("/v1/files", getUploadFileHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/files/:file_id", getRetrieveFileHandler(prod, client, baseUrl, timeOut))
	router.DELETE("/v1/files/:file_id", getDeleteFileHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/files/:file_id/content", getRetrieveFileContentHandler(prod, client, baseUrl, timeOut))

	router.POST("/v1/responses", getCreateResponseHandler(prod, client, baseUrl, timeOut))
	router.GET("/v1/responses/:response_id", getRetrieveResponseHandler(prod, client, baseUrl, timeOut))
	router.DELETE("/v1/responses/:response_id", getDeleteResponseHandler(prod, client, baseUrl, timeOut))
	router.POST("/v1/responses/:response_id/cancel", getCancelResponseHandler(prod, client, baseUrl, timeOut))

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		Handler: router,
	}

	return &ProxyServer{
		log:    log,
		server: srv,
	}, nil
}

func getGetHealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	}
}

// newUpstreamClient builds a client scoped to the caller's credential. The
// configuration never outlives the request that carried it.
func newUpstreamClient(c *gin.Context, client http.Client, baseUrl string, assistantsBeta bool) (*openai.Client, error) {
	cfg, err := auth.ResolveUpstreamConfig(c.Request.Header, assistantsBeta)
	if err != nil {
		return nil, err
	}

	return openai.NewClient(cfg, client, baseUrl), nil
}

// requestContext derives the upstream call context. A zero timeout means
// the call is bounded only by the inbound connection.
func requestContext(c *gin.Context, timeOut time.Duration) (context.Context, context.CancelFunc) {
	if timeOut <= 0 {
		return context.WithCancel(c.Request.Context())
	}

	return context.WithTimeout(c.Request.Context(), timeOut)
}

func errorStatus(err error) int {
	if _, ok := err.(notAuthorizedError); ok {
		return http.StatusUnauthorized
	}

	if _, ok := err.(validationError); ok {
		return http.StatusBadRequest
	}

	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode()
	}

	return http.StatusBadGateway
}

// relayError maps a failed relay attempt onto the response: credential and
// request-shape failures keep their category status, upstream error
// envelopes keep the upstream status, anything else is a bad gateway.
func relayError(c *gin.Context, log *zap.Logger, prod bool, cid, handler string, err error) {
	var oe *openai.Error
	if errors.As(err, &oe) {
		telemetry.Incr("byokllm.proxy."+handler+".openai_error", nil, 1)
		logOpenAiError(log, prod, cid, oe)
		JSON(c, oe.StatusCode(), "[BYOKLLM] "+oe.Error())
		return
	}

	code := errorStatus(err)
	if code == http.StatusBadGateway {
		telemetry.Incr("byokllm.proxy."+handler+".http_client_error", nil, 1)
		logError(log, "error when sending request to openai", prod, cid, err)
		JSON(c, code, "[BYOKLLM] failed to send request to openai")
		return
	}

	telemetry.Incr("byokllm.proxy."+handler+".request_rejected", nil, 1)
	logError(log, "request rejected before reaching openai", prod, cid, err)
	JSON(c, code, "[BYOKLLM] "+err.Error())
}

func logError(log *zap.Logger, msg string, prod bool, id string, err error) {
	if prod {
		log.Debug(msg, zap.String(correlationId, id), zap.Error(err))
		return
	}

	log.Sugar().Debugf("correlationId:%s | %s | %v", id, msg, err)
}

func logOpenAiError(log *zap.Logger, prod bool, id string, err *openai.Error) {
	if prod {
		log.Info("openai error response", zap.String(correlationId, id), zap.Int("status", err.StatusCode()), zap.String("type", err.Type()), zap.Error(err))
		return
	}

	log.Sugar().Infof("correlationId:%s | openai error response | %d | %v", id, err.StatusCode(), err)
}

func (ps *ProxyServer) Run() {
	go func() {
		ps.log.Sugar().Infof("byokllm relay listening at %s", ps.server.Addr)

		if err := ps.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ps.log.Sugar().Fatalf("error relay server listening: %v", err)
		}
	}()
}

func (ps *ProxyServer) Shutdown(ctx context.Context) error {
	if err := ps.server.Shutdown(ctx); err != nil {
		ps.log.Sugar().Infof("error shutting down relay server: %v", err)

		return err
	}

	return nil
}
