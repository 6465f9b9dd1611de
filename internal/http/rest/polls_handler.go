package rest

import (
	"net/http"

	"github.com/ammoru/pulseroom/internal/model"
	"github.com/ammoru/pulseroom/util"
	"github.com/ammoru/pulseroom/util/tracing"
	"github.com/ammoru/pulseroom/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) PollRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodPost, "/", Handler(api.CreatePoll))
	mux.Method(http.MethodGet, "/", Handler(api.ListPolls))
	mux.Method(http.MethodGet, "/{pollID}", Handler(api.GetPoll))
	mux.Method(http.MethodPost, "/{pollID}/vote", Handler(api.CastVote))

	return mux
}

func (api *API) CreatePoll(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	var req model.CreatePollRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "question and at least 2 options are required", values.BadRequestBody, &tc)
	}

	poll, status, message, err := api.CreatePollHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       poll,
	}
}

func (api *API) ListPolls(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	polls, status, message, err := api.ListPollsHelper(r.Context())
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	if polls == nil {
		polls = []model.Poll{}
	}
	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       polls,
	}
}

func (api *API) GetPoll(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	pollID, err := util.StringToUUID(chi.URLParam(r, "pollID"))
	if err != nil {
		return respondWithError(err, "poll not found", values.NotFound, &tc)
	}

	poll, status, message, err := api.GetPollHelper(r.Context(), pollID)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       poll,
	}
}

func (api *API) CastVote(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := r.Context().Value(values.ContextTracingKey).(tracing.Context)

	pollID, err := util.StringToUUID(chi.URLParam(r, "pollID"))
	if err != nil {
		return respondWithError(err, "poll not found", values.NotFound, &tc)
	}

	var req model.CastVoteRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}

	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, "optionId and voterId are required", values.BadRequestBody, &tc)
	}

	poll, status, message, err := api.CastVoteHelper(r.Context(), pollID, req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       poll,
	}
}
