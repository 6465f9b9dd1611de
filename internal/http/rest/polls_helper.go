package rest

import (
	"context"
	"errors"

	"github.com/ammoru/pulseroom/internal/engine"
	"github.com/ammoru/pulseroom/internal/model"
	"github.com/ammoru/pulseroom/internal/store"
	"github.com/ammoru/pulseroom/util"
	"github.com/ammoru/pulseroom/util/values"
	"github.com/google/uuid"
)

func (api *API) CreatePollHelper(ctx context.Context, req model.CreatePollRequest) (model.Poll, string, string, error) {
	poll, err := api.Deps.Store.Create(ctx, req.Question, req.Options)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrQuestionTooShort), errors.Is(err, store.ErrTooFewOptions):
			return model.Poll{}, values.BadRequestBody, err.Error(), err
		default:
			return model.Poll{}, values.Error, "Failed to create poll", err
		}
	}
	return poll, values.Created, "Poll created successfully", nil
}

func (api *API) GetPollHelper(ctx context.Context, pollID uuid.UUID) (model.Poll, string, string, error) {
	poll, err := api.Deps.Store.Get(ctx, pollID)
	if err != nil {
		if errors.Is(err, store.ErrPollNotFound) {
			return model.Poll{}, values.NotFound, "Poll not found", err
		}
		return model.Poll{}, values.Error, "Failed to fetch poll", err
	}
	return poll, values.Success, "Poll fetched successfully", nil
}

func (api *API) ListPollsHelper(ctx context.Context) ([]model.Poll, string, string, error) {
	polls, err := api.Deps.Store.List(ctx)
	if err != nil {
		return nil, values.Error, "Failed to fetch polls", err
	}
	return polls, values.Success, "Polls fetched successfully", nil
}

func (api *API) CastVoteHelper(ctx context.Context, pollID uuid.UUID, req model.CastVoteRequest) (model.Poll, string, string, error) {
	optionID, err := util.StringToUUID(req.OptionID)
	if err != nil {
		return model.Poll{}, values.NotFound, "Option not found for this poll", store.ErrOptionNotFound
	}

	poll, err := api.Deps.Engine.CastVote(ctx, pollID, req.VoterID, optionID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrPollNotFound):
			return model.Poll{}, values.NotFound, "Poll not found", err
		case errors.Is(err, store.ErrOptionNotFound):
			return model.Poll{}, values.NotFound, "Option not found for this poll", err
		case errors.Is(err, store.ErrInvalidVoter):
			return model.Poll{}, values.BadRequestBody, "Invalid voter id", err
		case errors.Is(err, engine.ErrContended):
			return model.Poll{}, values.Conflict, "Poll is busy, please retry", err
		default:
			return model.Poll{}, values.Error, "Failed to cast vote", err
		}
	}
	return poll, values.Success, "Vote recorded", nil
}
