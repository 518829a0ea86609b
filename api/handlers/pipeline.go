package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/BaSui01/recruitflow/api"
	"github.com/BaSui01/recruitflow/pipeline"
)

// multipartOverhead is the allowance for form fields and part headers on top
// of the document itself.
const multipartOverhead = 1 << 20

// PipelineRunner runs one recruitment pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, in pipeline.Input, em pipeline.Emitter) pipeline.Result
}

// =============================================================================
// 🎬 流水线 Handler
// =============================================================================

// PipelineHandler streams pipeline runs to the client.
type PipelineHandler struct {
	runner    PipelineRunner
	maxUpload int64
	origins   []string
	logger    *zap.Logger
}

// NewPipelineHandler creates a PipelineHandler. maxUpload <= 0 disables the
// document size check; origins are the WebSocket origin patterns accepted
// besides same-origin requests.
func NewPipelineHandler(runner PipelineRunner, maxUpload int64, origins []string, logger *zap.Logger) *PipelineHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineHandler{
		runner:    runner,
		maxUpload: maxUpload,
		origins:   origins,
		logger:    logger.With(zap.String("component", "pipeline_handler")),
	}
}

// HandleSSE 处理 POST /api/recruitment-pipeline
// 请求为 multipart 表单（file + campaignName），响应为 text/event-stream，
// 每帧一行 "data: <json>"。
func (h *PipelineHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// 运行时间远超服务器写超时
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear write deadline", zap.Error(err))
	}

	in, rejection := h.readUpload(w, r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	stream := h.start(r.Context(), in, rejection)
	h.drain(r.Context(), stream, func(ev pipeline.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	})
}

// readUpload extracts the pipeline input from a multipart request. A missing
// file or name is left for the orchestrator to reject; the returned message
// is set only for uploads that cannot be read at all.
func (h *PipelineHandler) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Input, string) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.Input{}, h.tooLarge()
		}
		h.logger.Debug("request is not a multipart form", zap.Error(err))
		return pipeline.Input{}, ""
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in := pipeline.Input{CampaignName: r.FormValue("campaignName")}
	file, header, err := r.FormFile("file")
	if err != nil {
		return in, ""
	}
	defer file.Close()

	if h.maxUpload > 0 && header.Size > h.maxUpload {
		return in, h.tooLarge()
	}
	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Warn("failed to read upload", zap.String("filename", header.Filename), zap.Error(err))
		return in, "Failed to read uploaded file"
	}
	in.Document = data
	return in, ""
}

func (h *PipelineHandler) tooLarge() string {
	return fmt.Sprintf("File exceeds the %d byte upload limit", h.maxUpload)
}

// HandleWebSocket 处理 GET /api/recruitment-pipeline/ws
// 第一条文本消息为 {"campaignName": ...}，第二条二进制消息为文档；
// 每个进度帧作为一条文本消息发送，终止帧之后以正常关闭码关闭连接。
func (h *PipelineHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()
	if h.maxUpload > 0 {
		conn.SetReadLimit(h.maxUpload)
	}

	in, rejection, err := h.readSocketInput(r.Context(), conn)
	if err != nil {
		h.logger.Debug("websocket closed before the document arrived", zap.Error(err))
		return
	}

	// 之后不再读取客户端消息；客户端断开时 ctx 被取消
	ctx := conn.CloseRead(r.Context())
	stream := h.start(ctx, in, rejection)
	h.drain(ctx, stream, func(ev pipeline.Event) error {
		return wsjson.Write(ctx, conn, ev)
	})
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *PipelineHandler) readSocketInput(ctx context.Context, conn *websocket.Conn) (pipeline.Input, string, error) {
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return pipeline.Input{}, "", err
	}
	var start api.PipelineStart
	if typ != websocket.MessageText || json.Unmarshal(data, &start) != nil {
		return pipeline.Input{}, "First message must be a JSON object with campaignName", nil
	}

	typ, data, err = conn.Read(ctx)
	if err != nil {
		return pipeline.Input{}, "", err
	}
	if typ != websocket.MessageBinary {
		return pipeline.Input{}, "Second message must be the binary document", nil
	}
	return pipeline.Input{Document: data, CampaignName: start.CampaignName}, "", nil
}

// start launches the run, or finishes the stream at once when the upload was unusable.
func (h *PipelineHandler) start(ctx context.Context, in pipeline.Input, rejection string) *pipeline.Stream {
	stream := pipeline.NewStream()
	if rejection != "" {
		stream.Finish(pipeline.Final{Error: rejection})
		return stream
	}
	go h.runner.Run(ctx, in, stream)
	return stream
}

// drain writes every event until the final frame. A departed client stops
// the writes; the run itself continues to completion.
func (h *PipelineHandler) drain(ctx context.Context, stream *pipeline.Stream, write func(pipeline.Event) error) {
	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			return
		}
		if err := write(ev); err != nil {
			h.logger.Info("client disconnected from pipeline stream", zap.Error(err))
			return
		}
	}
}
