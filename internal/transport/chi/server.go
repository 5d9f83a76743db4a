package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/receiptdex/internal/domain"
	"github.com/kailas-cloud/receiptdex/internal/domain/conversation"
	"github.com/kailas-cloud/receiptdex/internal/tools"
	healthuc "github.com/kailas-cloud/receiptdex/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/receiptdex/internal/usecase/session"
	usageuc "github.com/kailas-cloud/receiptdex/internal/usecase/usage"
)

// ErrorCode is the machine-readable error discriminator in error responses.
type ErrorCode string

const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeInvalidRange         ErrorCode = "invalid_range"
	CodeSessionNotFound      ErrorCode = "session_not_found"
	CodeReceiptNotFound      ErrorCode = "receipt_not_found"
	CodeDuplicateReceipt     ErrorCode = "duplicate_receipt"
	CodeImageUnavailable     ErrorCode = "image_unavailable"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeEmbeddingQuota       ErrorCode = "embedding_quota_exceeded"
	CodeGatewayTimeout       ErrorCode = "gateway_timeout"
	CodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API surface over sessions, tools, usage and health.
type Server struct {
	sessions      *sessionuc.Manager
	tools         *tools.Registry
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions *sessionuc.Manager,
	registry *tools.Registry,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions: sessions,
		tools:    registry,
		usage:    usage,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRange, http.StatusBadRequest, CodeInvalidRange),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrReceiptNotFound, http.StatusNotFound, CodeReceiptNotFound),
		sentinelHandler(domain.ErrDuplicateReceipt, http.StatusConflict, CodeDuplicateReceipt),
		sentinelHandler(domain.ErrImageUnavailable, http.StatusGone, CodeImageUnavailable),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, CodeEmbeddingQuota),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusBadGateway, CodeEmbeddingUnavailable),
		sentinelHandler(domain.ErrGatewayTimeout, http.StatusGatewayTimeout, CodeGatewayTimeout),
	}
	return s
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/sessions", s.CreateSession)
	r.Post("/sessions/{session}/turns", s.AppendTurn)
	r.Get("/sessions/{session}/turns", s.GetHistory)
	r.Get("/sessions/{session}/images/{ref}", s.GetImage)
	r.Get("/tools", s.ListTools)
	r.Post("/tools/{tool}", s.InvokeTool)
	r.Get("/usage", s.GetUsage)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

// --- sessions ---

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: s.sessions.NewSessionID()})
}

type incomingImage struct {
	Data     []byte `json:"data"` // base64 per encoding/json convention
	MimeType string `json:"mime_type"`
}

type appendTurnRequest struct {
	Role   string          `json:"role"`
	Text   string          `json:"text"`
	Images []incomingImage `json:"images,omitempty"`
}

type attachmentView struct {
	Ref      string `json:"ref"`
	MimeType string `json:"mime_type"`
	Live     bool   `json:"live"`
}

type turnView struct {
	Role   string           `json:"role"`
	Text   string           `json:"text"`
	Images []attachmentView `json:"images,omitempty"`
}

func turnToView(t conversation.Turn) turnView {
	v := turnView{Role: string(t.Role), Text: t.Text}
	for i := range t.Images {
		v.Images = append(v.Images, attachmentView{
			Ref:      t.Images[i].Ref,
			MimeType: t.Images[i].MimeType,
			Live:     t.Images[i].Live(),
		})
	}
	return v
}

// AppendTurn handles POST /sessions/{session}/turns.
func (s *Server) AppendTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	var req appendTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	images := make([]sessionuc.IncomingImage, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, sessionuc.IncomingImage{Data: img.Data, MimeType: img.MimeType})
	}

	turn, err := s.sessions.AppendTurn(r.Context(), sessionID, conversation.Role(req.Role), req.Text, images)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, turnToView(turn))
}

type historyResponse struct {
	Turns []turnView `json:"turns"`
	Count int        `json:"count"`
}

// GetHistory handles GET /sessions/{session}/turns.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")

	turns, err := s.sessions.History(r.Context(), sessionID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	views := make([]turnView, len(turns))
	for i, t := range turns {
		views[i] = turnToView(t)
	}

	writeJSON(w, http.StatusOK, historyResponse{Turns: views, Count: len(views)})
}

// GetImage handles GET /sessions/{session}/images/{ref}. It returns the raw
// image bytes regardless of whether the reference is still in the retention
// window or has already been archived with a receipt.
func (s *Server) GetImage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session")
	ref := chi.URLParam(r, "ref")

	blob, err := s.sessions.Resolve(r.Context(), sessionID, ref)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	contentType := blob.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// --- tools ---

type toolView struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type listToolsResponse struct {
	Tools []toolView `json:"tools"`
}

// ListTools handles GET /tools.
func (s *Server) ListTools(w http.ResponseWriter, _ *http.Request) {
	defs := s.tools.List()
	views := make([]toolView, len(defs))
	for i, t := range defs {
		views[i] = toolView{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	writeJSON(w, http.StatusOK, listToolsResponse{Tools: views})
}

type invokeToolResponse struct {
	Result any `json:"result"`
}

// InvokeTool handles POST /tools/{tool}. The request body is the tool's
// argument object; unknown fields are passed through and left to the tool.
func (s *Server) InvokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tool")

	var args map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())

	result, err := s.tools.Invoke(ctx, name, args)

	setEmbeddingHeaders(w, usage)

	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, invokeToolResponse{Result: result})
}

// --- usage / health ---

type usageWindowView struct {
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Exhausted bool   `json:"is_exhausted"`
	ResetsAt  string `json:"resets_at"`
}

type usageResponse struct {
	Period string          `json:"period"`
	Start  string          `json:"period_start_at"`
	End    string          `json:"period_end_at"`
	Tokens usageWindowView `json:"tokens"`
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := usageuc.PeriodDay
	if p := r.URL.Query().Get("period"); p != "" {
		period = usageuc.Period(p)
	}

	report := s.usage.GetReport(r.Context(), period)

	writeJSON(w, http.StatusOK, usageResponse{
		Period: string(report.Period),
		Start:  report.Start.Format("2006-01-02T15:04:05Z07:00"),
		End:    report.End.Format("2006-01-02T15:04:05Z07:00"),
		Tokens: usageWindowView{
			Limit:     report.Tokens.Limit,
			Used:      report.Tokens.Used,
			Remaining: report.Tokens.Remaining,
			Exhausted: report.Tokens.Exhausted,
			ResetsAt:  report.Tokens.ResetsAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// --- helpers ---

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRange,
		domain.ErrInvalidArgument,
		domain.ErrSessionNotFound,
		domain.ErrReceiptNotFound,
		domain.ErrDuplicateReceipt,
		domain.ErrImageUnavailable,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingUnavailable,
		domain.ErrGatewayTimeout,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
