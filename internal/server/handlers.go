package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/nano-banana-studio/internal/studio"
	"github.com/shouni/nano-banana-studio/pkg/domain"

	"github.com/go-chi/chi/v5"
)

// multipart のヘッダー等を見込んだリクエスト全体の上限
const maxUploadBodyBytes = domain.MaxSourceImageBytes + 1<<20

type errorResponse struct {
	Error string `json:"error"`
}

type resultResponse struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	DataURL   string `json:"dataUrl,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Error     string `json:"error,omitempty"`
}

type sourceResponse struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	DataURL  string `json:"dataUrl"`
}

type generateRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError はエラーの種類に応じたステータスコードで JSON を返します。
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "error", err, "status", code)
	}
	msg := err.Error()
	if errors.Is(err, studio.ErrSuperseded) {
		msg = "A newer request replaced this one."
	}
	writeJSON(w, code, errorResponse{Error: msg})
}

func statusOf(err error) int {
	var (
		validationErr *domain.ValidationError
		remoteErr     *domain.RemoteServiceError
		maxBytesErr   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, studio.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validationErr):
		if validationErr.Message == domain.FileTooLargeMessage {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoImageProduced):
		return http.StatusUnprocessableEntity
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newResultResponse(op studio.Operation, st studio.SlotState) resultResponse {
	resp := resultResponse{Operation: string(op)}
	switch {
	case st.Pending:
		resp.Status = "loading"
	case st.Result != nil:
		resp.Status = "success"
		resp.DataURL = st.Result.DataURL()
		resp.MimeType = st.Result.MimeType
	case st.Error != "":
		resp.Status = "error"
		resp.Error = st.Error
	default:
		resp.Status = "idle"
	}
	return resp
}

func newSourceResponse(src *studio.SourceImage) sourceResponse {
	return sourceResponse{
		Name:     src.Name,
		MimeType: src.MimeType,
		Size:     len(src.Data),
		Width:    src.Width,
		Height:   src.Height,
		DataURL:  src.DataURL(),
	}
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		AspectRatios       []string
		DefaultAspectRatio string
		MaxUploadMB        int
	}{
		AspectRatios:       domain.SupportedAspectRatios(),
		DefaultAspectRatio: domain.DefaultAspectRatio,
		MaxUploadMB:        domain.MaxSourceImageBytes >> 20,
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		slog.ErrorContext(r.Context(), "template execution failed", "error", err)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) aspectRatios(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"aspectRatios": domain.SupportedAspectRatios(),
		"default":      domain.DefaultAspectRatio,
	})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err != nil {
		writeError(w, r, &domain.ValidationError{Field: "body", Message: fmt.Sprintf("Invalid request body: %v", err)})
		return
	}
	if body.AspectRatio == "" {
		body.AspectRatio = domain.DefaultAspectRatio
	}

	ws := workspaceFrom(r.Context())
	if _, err := s.svc.Generate(r.Context(), ws, domain.GenerationRequest{Prompt: body.Prompt, AspectRatio: body.AspectRatio}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(studio.OperationGenerate, ws.Slot(studio.OperationGenerate).Snapshot()))
}

// putSource は編集用の元画像を受け取ります。
func (s *Server) putSource(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	src, err := s.readSource(w, r, ws)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSourceResponse(src))
}

func (s *Server) deleteSource(w http.ResponseWriter, r *http.Request) {
	if ws := workspaceFrom(r.Context()); ws != nil {
		ws.ClearSource()
	}
	w.WriteHeader(http.StatusNoContent)
}

// edit は instruction で選択中の元画像を編集します。
// multipart で image フィールドが添付されていれば、先に元画像として選択します。
// 指示が空のリクエストは元画像を差し替える前に拒否します。
func (s *Server) edit(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	if isMultipart(r) {
		if err := parseUpload(w, r); err != nil {
			writeError(w, r, err)
			return
		}
	}

	instruction := r.FormValue("instruction")
	if err := domain.ValidateInstruction(instruction); err != nil {
		writeError(w, r, err)
		return
	}
	if isMultipart(r) {
		if _, err := s.selectUpload(r, ws, false); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if _, err := s.svc.Edit(r.Context(), ws, instruction); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(studio.OperationEdit, ws.Slot(studio.OperationEdit).Snapshot()))
}

// readSource は multipart の image フィールドを読み込んで元画像に設定します。
func (s *Server) readSource(w http.ResponseWriter, r *http.Request, ws *studio.Workspace) (*studio.SourceImage, error) {
	if err := parseUpload(w, r); err != nil {
		return nil, err
	}
	return s.selectUpload(r, ws, true)
}

// parseUpload はサイズ上限付きで multipart フォームを解析します。
func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodyBytes)
	if err := r.ParseMultipartForm(maxUploadBodyBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return &domain.ValidationError{Field: "image", Message: domain.FileTooLargeMessage}
		}
		return &domain.ValidationError{Field: "body", Message: fmt.Sprintf("Invalid upload: %v", err)}
	}
	return nil
}

// selectUpload は解析済みフォームの image フィールドを元画像に設定します。
// required が false でフィールドが無い場合は (nil, nil) を返します。
func (s *Server) selectUpload(r *http.Request, ws *studio.Workspace, required bool) (*studio.SourceImage, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, studio.ErrNoSource
		}
		return nil, nil
	}
	if err != nil {
		return nil, &domain.ValidationError{Field: "image", Message: fmt.Sprintf("Invalid upload: %v", err)}
	}
	defer file.Close()

	if header.Size > domain.MaxSourceImageBytes {
		return nil, &domain.ValidationError{Field: "image", Message: domain.FileTooLargeMessage}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("アップロードの読み込みに失敗しました: %w", err)
	}
	return s.svc.SelectSource(ws, header.Filename, data, header.Header.Get("Content-Type"))
}

func (s *Server) operation(w http.ResponseWriter, r *http.Request) (studio.Operation, bool) {
	op, err := studio.ParseOperation(chi.URLParam(r, "operation"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return "", false
	}
	return op, true
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request) {
	op, ok := s.operation(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(op, snapshotOf(r, op)))
}

// download は現在の結果を nano-banana-<unixミリ秒><拡張子> として返します。
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	op, ok := s.operation(w, r)
	if !ok {
		return
	}
	st := snapshotOf(r, op)
	if st.Result == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No image to download."})
		return
	}

	filename := fmt.Sprintf("nano-banana-%d%s", s.now().UnixMilli(), st.Result.FileExtension())
	w.Header().Set("Content-Type", st.Result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(st.Result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(st.Result.Data)
}

func (s *Server) clearResult(w http.ResponseWriter, r *http.Request) {
	op, ok := s.operation(w, r)
	if !ok {
		return
	}
	if ws := workspaceFrom(r.Context()); ws != nil {
		ws.Slot(op).Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

// snapshotOf はセッションが無ければ idle 状態を返します。
func snapshotOf(r *http.Request, op studio.Operation) studio.SlotState {
	ws := workspaceFrom(r.Context())
	if ws == nil {
		return studio.SlotState{}
	}
	return ws.Slot(op).Snapshot()
}

// isMultipart は Content-Type が multipart/form-data かどうかを返します。
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}
