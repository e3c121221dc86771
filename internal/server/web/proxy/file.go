package proxy

import (
	"mime/multipart"
	"net/http"
	"time"

	internal_errors "github.com/bricks-cloud/byokllm/internal/errors"
	"github.com/bricks-cloud/byokllm/internal/provider/openai"
	"github.com/bricks-cloud/byokllm/internal/telemetry"
	"github.com/bricks-cloud/byokllm/internal/util"
	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type uploadForm struct {
	File *multipart.FileHeader `form:"file"`
}

func getUploadFileHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_upload_file_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		var form uploadForm
		if err := c.ShouldBind(&form); err != nil {
			telemetry.Incr("byokllm.proxy.get_upload_file_handler.request_body_error", nil, 1)
			logError(log, "error when parsing multipart form", prod, cid, err)
			relayError(c, log, prod, cid, "get_upload_file_handler", internal_errors.NewValidationError("failed to parse multipart form"))
			return
		}

		if form.File == nil {
			telemetry.Incr("byokllm.proxy.get_upload_file_handler.file_not_provided", nil, 1)
			relayError(c, log, prod, cid, "get_upload_file_handler", internal_errors.NewValidationError("file not provided"))
			return
		}

		purpose, ok := c.GetPostForm("purpose")
		if !ok {
			telemetry.Incr("byokllm.proxy.get_upload_file_handler.purpose_not_provided", nil, 1)
			relayError(c, log, prod, cid, "get_upload_file_handler", internal_errors.NewValidationError("purpose not provided"))
			return
		}

		opened, err := form.File.Open()
		if err != nil {
			logError(log, "error when opening uploaded file", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[BYOKLLM] cannot open uploaded file")
			return
		}
		defer opened.Close()

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_upload_file_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.UploadFile(ctx, &openai.FileUploadRequest{
			FileName: form.File.Filename,
			Purpose:  filePurpose(purpose),
			Reader:   opened,
		})
		if err != nil {
			relayError(c, log, prod, cid, "get_upload_file_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_upload_file_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_upload_file_handler.latency", time.Since(start), nil, 1)

		logFileResponse(log, res, prod, cid)
		c.JSON(http.StatusOK, res)
	}
}

// filePurpose maps the inbound form value onto a known upload purpose,
// falling back to assistants for anything unrecognized.
func filePurpose(purpose string) goopenai.PurposeType {
	switch purpose {
	case "fine-tune":
		return goopenai.PurposeFineTune
	case "batch":
		return goopenai.PurposeBatch
	default:
		return goopenai.PurposeAssistants
	}
}

func getListFilesHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_list_files_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_files_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.ListFiles(ctx)
		if err != nil {
			relayError(c, log, prod, cid, "get_list_files_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_list_files_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_list_files_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai list files response", zap.String(correlationId, cid), zap.Int("number_of_files", len(res.Files)))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getRetrieveFileHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_file_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_file_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.RetrieveFile(ctx, c.Param("file_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_file_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_file_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_file_handler.latency", time.Since(start), nil, 1)

		logFileResponse(log, res, prod, cid)
		c.JSON(http.StatusOK, res)
	}
}

func getDeleteFileHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_delete_file_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_file_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		res, err := ec.DeleteFile(ctx, c.Param("file_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_delete_file_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_delete_file_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_delete_file_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai delete file response", zap.String(correlationId, cid), zap.String("id", res.ID), zap.Bool("deleted", res.Deleted))
		}

		c.JSON(http.StatusOK, res)
	}
}

func getRetrieveFileContentHandler(prod bool, client http.Client, baseUrl string, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("byokllm.proxy.get_retrieve_file_content_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		ec, err := newUpstreamClient(c, client, baseUrl, false)
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_file_content_handler", err)
			return
		}

		ctx, cancel := requestContext(c, timeOut)
		defer cancel()

		start := time.Now()

		data, contentType, err := ec.RetrieveFileContent(ctx, c.Param("file_id"))
		if err != nil {
			relayError(c, log, prod, cid, "get_retrieve_file_content_handler", err)
			return
		}

		telemetry.Incr("byokllm.proxy.get_retrieve_file_content_handler.success", nil, 1)
		telemetry.Timing("byokllm.proxy.get_retrieve_file_content_handler.latency", time.Since(start), nil, 1)

		if prod {
			log.Info("openai retrieve file content response", zap.String(correlationId, cid), zap.Int("number_of_bytes", len(data)))
		}

		if contentType == "" {
			contentType = "application/octet-stream"
		}

		c.Data(http.StatusOK, contentType, data)
	}
}

func logFileResponse(log *zap.Logger, f *goopenai.File, prod bool, cid string) {
	if prod {
		log.Info("openai file response",
			zap.String(correlationId, cid),
			zap.String("id", f.ID),
			zap.String("object", f.Object),
			zap.String("filename", f.FileName),
			zap.String("purpose", f.Purpose),
			zap.Int("bytes", f.Bytes),
		)
	}
}
