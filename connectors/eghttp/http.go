// Package eghttp exposes the command and query pipelines over HTTP.
package eghttp

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kestrelworks/eventguard-go/eg"
	"github.com/kestrelworks/eventguard-go/guard"
)

type HandlerOption func(service *httpService)

func Logger(logger *zerolog.Logger) HandlerOption {
	return func(service *httpService) {
		service.log = logger
	}
}

// NewHandler routes command envelopes to executors by aggregate type and
// query envelopes to the query service.
func NewHandler(commands map[string]eg.CommandExecutor, queries *eg.QueryService, health *Health, options ...HandlerOption) http.Handler {
	service := &httpService{
		commands: commands,
		queries:  queries,
		health:   health,
	}
	for _, option := range options {
		option(service)
	}
	if service.log == nil {
		service.log = &log.Logger
	}

	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))
	// End-to-end budget for a request, over and above the per-call
	// timeouts inside the resilience layer.
	r.Use(middleware.Timeout(guard.CommandCallTimeout))

	r.Method("POST", "/api/v1/commands/execute", service.executeCommand())
	r.Method("POST", "/api/v1/queries/execute", service.executeQuery())
	r.Method("GET", "/health", service.checkHealth())

	return otelhttp.NewHandler(r, "eg-http")
}

type httpService struct {
	log      *zerolog.Logger
	commands map[string]eg.CommandExecutor
	queries  *eg.QueryService
	health   *Health
}

type CommandEnvelope struct {
	TenantID        string          `json:"tenant_id"`
	AggregateType   string          `json:"aggregate_type"`
	AggregateID     string          `json:"aggregate_id"`
	CommandType     string          `json:"command_type"`
	Payload         json.RawMessage `json:"payload"`
	ExpectedVersion *eg.Version     `json:"expected_version,omitempty"`
}

type QueryEnvelope struct {
	TenantID   string          `json:"tenant_id"`
	QueryType  string          `json:"query_type"`
	Parameters json.RawMessage `json:"parameters"`
}

type errorBody struct {
	Error   eg.Code `json:"error"`
	Message string  `json:"message"`
}

func (service *httpService) executeCommand() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var envelope CommandEnvelope
		if !service.decode(w, r, &envelope) {
			return
		}

		executor := service.commands[envelope.AggregateType]
		if executor == nil {
			service.renderError(w, r, eg.Invalid("unknown aggregate type %q", envelope.AggregateType))
			return
		}

		stream := eg.StreamID{
			Tenant: eg.TenantID(envelope.TenantID),
			Type:   envelope.AggregateType,
			Key:    envelope.AggregateID,
		}
		command := eg.RemoteCommand{
			CommandName: eg.CommandName(envelope.CommandType),
			Payload:     eg.Data{Encoding: eg.JSONEncoding, Data: envelope.Payload},
		}

		result, err := executor.ExecuteRemote(r.Context(), stream, envelope.ExpectedVersion, command)
		if err != nil {
			service.log.Info().Err(err).
				Str("tenant", envelope.TenantID).
				Str("command", envelope.CommandType).
				Msg("failed to execute command")
			service.renderError(w, r, err)
			return
		}

		render.JSON(w, r, result)
	}
}

func (service *httpService) executeQuery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var envelope QueryEnvelope
		if !service.decode(w, r, &envelope) {
			return
		}

		query := eg.Query{
			Tenant:     eg.TenantID(envelope.TenantID),
			Name:       eg.QueryName(envelope.QueryType),
			Parameters: eg.Data{Encoding: eg.JSONEncoding, Data: envelope.Parameters},
		}

		result, err := service.queries.Execute(r.Context(), query)
		if err != nil {
			service.log.Info().Err(err).
				Str("tenant", envelope.TenantID).
				Str("query", envelope.QueryType).
				Msg("failed to execute query")
			service.renderError(w, r, err)
			return
		}

		render.JSON(w, r, result)
	}
}

func (service *httpService) checkHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := service.health.Check()

		render.JSON(w, r, report)
	}
}

func (service *httpService) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if mediaType != "application/json" || err != nil {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		service.renderError(w, r, eg.Invalid("invalid request body"))
		return false
	}

	// goccy's UnmarshalContext panics on json.RawMessage fields (it
	// asserts the context-aware unmarshaler interface, which RawMessage
	// does not implement), so decode without the context variant.
	if err := json.Unmarshal(body, v); err != nil {
		service.renderError(w, r, eg.Invalid("malformed request body: %v", err))
		return false
	}

	return true
}

func (service *httpService) renderError(w http.ResponseWriter, r *http.Request, err error) {
	code := eg.CodeOf(err)

	render.Status(r, statusOf(code))
	render.JSON(w, r, errorBody{Error: code, Message: err.Error()})
}

func statusOf(code eg.Code) int {
	switch code {
	case eg.CodeValidation:
		return http.StatusBadRequest
	case eg.CodeAggregateNotFound:
		return http.StatusNotFound
	case eg.CodeConcurrencyConflict, eg.CodeCommandConflict:
		return http.StatusConflict
	case eg.CodeDomainError:
		return http.StatusUnprocessableEntity
	case eg.CodeCircuitOpen, eg.CodeDependencyExhausted, eg.CodeQueryUnavailable, eg.CodeTransientFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
