package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/accounting"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/api"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/backend/openai"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/model"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/observability"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/registry"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/translate"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/transport"
	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/usage"
)

// Backend performs Chat Completions inference. Implemented by
// openai.Client; tests substitute scripted fakes.
type Backend interface {
	Complete(ctx context.Context, req *openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
	Stream(ctx context.Context, req *openai.ChatCompletionRequest) (<-chan openai.Event, error)
}

// Config holds configuration for the core engine.
type Config struct {
	// Validation bounds inbound request size and shape.
	Validation api.ValidationConfig
}

// Engine routes each inbound operation through validation, model
// resolution, and protocol translation to the backend. It implements
// transport.Handler.
type Engine struct {
	backend  Backend
	models   *registry.Registry
	recorder accounting.Recorder
	est      usage.Estimator
	cfg      Config
}

var _ transport.Handler = (*Engine)(nil)

// New creates a new Engine. The backend and model registry must not be
// nil. A nil recorder disables usage accounting.
func New(backend Backend, models *registry.Registry, recorder accounting.Recorder, cfg Config) (*Engine, error) {
	if backend == nil {
		return nil, fmt.Errorf("engine: backend must not be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("engine: model registry must not be nil")
	}
	if recorder == nil {
		recorder = accounting.Nop{}
	}
	return &Engine{
		backend:  backend,
		models:   models,
		recorder: recorder,
		cfg:      cfg,
	}, nil
}

// Handle processes one inbound request.
func (e *Engine) Handle(ctx context.Context, req *transport.Request, w transport.ResponseWriter) error {
	rec := accounting.Record{
		Time:        time.Now(),
		RequestID:   transport.RequestIDFromContext(ctx),
		Operation:   string(req.Op),
		SourceModel: req.Model,
	}

	if apiErr := api.ValidateGenerateRequest(req.Body, e.cfg.Validation); apiErr != nil {
		observability.TranslationErrorsTotal.WithLabelValues("validate").Inc()
		return e.fail(ctx, rec, apiErr)
	}

	target, ok := e.models.Resolve(req.Model)
	if !ok {
		return e.fail(ctx, rec, api.NewNotFoundError("model %q is not available", req.Model))
	}
	rec.TargetModel = target

	mreq, apiErr := translate.Parse(req.Body)
	if apiErr != nil {
		observability.TranslationErrorsTotal.WithLabelValues("parse").Inc()
		return e.fail(ctx, rec, apiErr)
	}

	promptEstimate := e.est.Request(mreq)
	rec.PromptTokens = promptEstimate

	switch req.Op {
	case transport.OpCountTokens:
		// Estimator only: the backend is never consulted for counting.
		if err := w.WriteTokenCount(ctx, &api.CountTokensResponse{TotalTokens: promptEstimate}); err != nil {
			return err
		}
		e.finish(ctx, rec, accounting.StatusOK)
		return nil

	case transport.OpGenerate:
		return e.generate(ctx, rec, mreq, target, promptEstimate, w)

	case transport.OpStreamGenerate:
		return e.stream(ctx, rec, mreq, target, promptEstimate, w)

	default:
		return e.fail(ctx, rec, api.NewNotFoundError("unknown operation %q", req.Op))
	}
}

func (e *Engine) generate(ctx context.Context, rec accounting.Record, mreq *model.Request, target string, promptEstimate int, w transport.ResponseWriter) error {
	chatReq, apiErr := translate.ToChat(mreq, target)
	if apiErr != nil {
		observability.TranslationErrorsTotal.WithLabelValues("encode").Inc()
		return e.fail(ctx, rec, apiErr)
	}

	backendStart := time.Now()
	chatResp, err := e.backend.Complete(ctx, chatReq)
	observability.BackendLatency.WithLabelValues(target).Observe(time.Since(backendStart).Seconds())
	if err != nil {
		observability.BackendRequestsTotal.WithLabelValues(target, "error").Inc()
		return e.fail(ctx, rec, err)
	}
	observability.BackendRequestsTotal.WithLabelValues(target, "ok").Inc()

	resp, apiErr := translate.FromChat(chatResp, promptEstimate)
	if apiErr != nil {
		observability.TranslationErrorsTotal.WithLabelValues("decode").Inc()
		return e.fail(ctx, rec, apiErr)
	}
	captureUsage(&rec, resp.UsageMetadata)
	countToolCalls(resp)

	if err := w.WriteResponse(ctx, resp); err != nil {
		return err
	}
	e.finish(ctx, rec, accounting.StatusOK)
	return nil
}

func (e *Engine) stream(ctx context.Context, rec accounting.Record, mreq *model.Request, target string, promptEstimate int, w transport.ResponseWriter) error {
	chatReq, apiErr := translate.ToChat(mreq, target)
	if apiErr != nil {
		observability.TranslationErrorsTotal.WithLabelValues("encode").Inc()
		return e.fail(ctx, rec, apiErr)
	}

	backendStart := time.Now()
	events, err := e.backend.Stream(ctx, chatReq)
	if err != nil {
		observability.BackendLatency.WithLabelValues(target).Observe(time.Since(backendStart).Seconds())
		observability.BackendRequestsTotal.WithLabelValues(target, "error").Inc()
		return e.fail(ctx, rec, err)
	}
	observability.BackendRequestsTotal.WithLabelValues(target, "ok").Inc()

	tr := translate.NewStreamTranscoder(promptEstimate)
	sawError := false

	writeFrames := func(frames []api.StreamFrame) (clientGone bool) {
		for _, frame := range frames {
			if frame.Error != nil {
				sawError = true
			}
			if frame.Response != nil {
				captureUsage(&rec, frame.Response.UsageMetadata)
				countToolCalls(frame.Response)
			}
			if err := w.WriteFrame(ctx, frame); err != nil {
				return true
			}
		}
		return false
	}

	for ev := range events {
		if writeFrames(tr.Transcode(ev)) {
			// Client disconnected; the context cancellation tears
			// down the backend stream.
			slog.Debug("client disconnected mid-stream",
				"request_id", rec.RequestID, "model", rec.SourceModel)
			observability.BackendLatency.WithLabelValues(target).Observe(time.Since(backendStart).Seconds())
			e.finish(ctx, rec, accounting.StatusCancelled)
			return nil
		}
	}
	writeFrames(tr.Close())
	observability.BackendLatency.WithLabelValues(target).Observe(time.Since(backendStart).Seconds())

	if sawError {
		e.finish(ctx, rec, accounting.StatusError)
	} else {
		e.finish(ctx, rec, accounting.StatusOK)
	}
	return nil
}

// fail records the outcome and hands the error back to the transport
// layer for serialization.
func (e *Engine) fail(ctx context.Context, rec accounting.Record, err error) error {
	e.finish(ctx, rec, accounting.StatusError)
	return err
}

// finish writes the usage record and token counters. Accounting is best
// effort: failures are logged and never surfaced to the client. The
// record survives client disconnects.
func (e *Engine) finish(ctx context.Context, rec accounting.Record, status string) {
	rec.Status = status
	rec.Duration = time.Since(rec.Time)
	if err := e.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		slog.Warn("usage record failed", "request_id", rec.RequestID, "error", err)
	}
	if rec.TargetModel != "" {
		observability.TokensTotal.WithLabelValues(rec.TargetModel, "prompt").Add(float64(rec.PromptTokens))
		observability.TokensTotal.WithLabelValues(rec.TargetModel, "completion").Add(float64(rec.CompletionTokens))
	}
}

func captureUsage(rec *accounting.Record, u *api.UsageMetadata) {
	if u == nil {
		return
	}
	rec.PromptTokens = u.PromptTokenCount
	rec.CompletionTokens = u.CandidatesTokenCount
}

func countToolCalls(resp *api.GenerateContentResponse) {
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			if p.FunctionCall != nil {
				observability.ToolCallsTotal.WithLabelValues("ok").Inc()
			}
		}
	}
}
