package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/koscakluka/ema-realtime/core/realtime"
	"github.com/koscakluka/ema-realtime/core/speechtotext"
	"github.com/koscakluka/ema-realtime/core/texttospeech"
	ttsqwen "github.com/koscakluka/ema-realtime/core/texttospeech/qwen"
	"github.com/koscakluka/ema-realtime/internal/config"
	"github.com/koscakluka/ema-realtime/internal/observability"
)

type Recognizer interface {
	Recognize(ctx context.Context, r io.Reader, opts ...speechtotext.TranscriptionOption) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts ...texttospeech.TextToSpeechOption) ([]byte, error)
}

type Server struct {
	cfg         config.Config
	recognizer  Recognizer
	synthesizer Synthesizer
	metrics     *observability.Metrics
}

func New(cfg config.Config, recognizer Recognizer, synthesizer Synthesizer, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:         cfg,
		recognizer:  recognizer,
		synthesizer: synthesizer,
		metrics:     metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	r.Post("/v1/recognize", s.handleRecognize)
	r.Post("/v1/synthesize", s.handleSynthesize)

	return otelhttp.NewHandler(r, "ema-realtime",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"region":    s.cfg.Region,
		"asr_model": s.cfg.ASRModel,
		"tts_model": s.cfg.TTSModel,
	})
}

type recognizeResponse struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	const route = "recognize"

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxRequestBytes)))
	if err != nil {
		s.respondBodyError(w, route, err)
		return
	}
	if len(body) == 0 {
		s.respondError(w, route, http.StatusBadRequest, "invalid_request", "audio body is required")
		return
	}

	opts := []speechtotext.TranscriptionOption{speechtotext.WithEncodingInfo(s.cfg.ASREncoding())}
	language := strings.TrimSpace(r.URL.Query().Get("language"))
	if language == "" {
		language = s.cfg.ASRLanguage
	}
	if language != "" {
		opts = append(opts, speechtotext.WithLanguage(language))
	}
	if s.cfg.ASRServerVAD {
		opts = append(opts, speechtotext.WithServerVAD(speechtotext.DefaultTurnDetection()))
	}

	s.metrics.AudioBytes.WithLabelValues("in").Add(float64(len(body)))
	started := time.Now()
	transcript, err := s.recognizer.Recognize(r.Context(), bytes.NewReader(body), opts...)
	s.metrics.ObserveSession(route, realtime.Outcome(err), time.Since(started))
	if err != nil {
		s.respondSessionError(w, route, err)
		return
	}

	s.respond(w, route, http.StatusOK, recognizeResponse{Transcript: transcript})
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	const route = "synthesize"

	var req synthesizeRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxRequestBytes)), &req); err != nil {
		s.respondBodyError(w, route, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.respondError(w, route, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = s.cfg.TTSVoice
	}
	if !slices.Contains(ttsqwen.GetAvailableVoices(), ttsqwen.Voice(voice)) {
		s.respondError(w, route, http.StatusBadRequest, "invalid_voice", "unknown voice "+strconv.Quote(voice))
		return
	}
	encoding, err := s.cfg.TTSEncoding()
	if err != nil {
		s.respondError(w, route, http.StatusInternalServerError, "invalid_configuration", err.Error())
		return
	}

	started := time.Now()
	audio, err := s.synthesizer.Synthesize(r.Context(), req.Text,
		texttospeech.WithVoice(voice),
		texttospeech.WithEncodingInfo(encoding))
	s.metrics.ObserveSession(route, realtime.Outcome(err), time.Since(started))
	if err != nil {
		s.respondSessionError(w, route, err)
		return
	}
	s.metrics.AudioBytes.WithLabelValues("out").Add(float64(len(audio)))

	w.Header().Set("Content-Type", encoding.Format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.Header().Set("X-Sample-Rate", strconv.Itoa(encoding.SampleRate))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
	s.metrics.Requests.WithLabelValues(route, strconv.Itoa(http.StatusOK)).Inc()
}

// statusForError maps session failures to gateway responses.
func statusForError(err error) (int, string) {
	var stateErr *realtime.InvalidStateError
	var serverErr *realtime.ServerError
	var transportErr *realtime.TransportError
	switch {
	case errors.As(err, &stateErr):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, realtime.ErrConnectionTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_timeout"
	case errors.As(err, &serverErr):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, realtime.ErrPrematureClose):
		return http.StatusBadGateway, "upstream_closed"
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, "upstream_unreachable"
	case errors.Is(err, realtime.ErrCancelled), errors.Is(err, context.Canceled):
		return 499, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// respondBodyError reports a request body that could not be read or decoded.
func (s *Server) respondBodyError(w http.ResponseWriter, route string, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.respondError(w, route, http.StatusRequestEntityTooLarge, "request_too_large", err.Error())
		return
	}
	s.respondError(w, route, http.StatusBadRequest, "invalid_request", err.Error())
}

func (s *Server) respondSessionError(w http.ResponseWriter, route string, err error) {
	status, code := statusForError(err)
	logger.Warn("realtime request failed", "route", route, "status", status, "error", err)
	s.respondError(w, route, status, code, err.Error())
}

func (s *Server) respond(w http.ResponseWriter, route string, status int, v any) {
	s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	respondJSON(w, status, v)
}

func (s *Server) respondError(w http.ResponseWriter, route string, status int, code, message string) {
	s.respond(w, route, status, errorResponse{Error: message, Code: code})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(body io.ReadCloser, out any) error {
	if body == nil {
		return errEmptyBody
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
