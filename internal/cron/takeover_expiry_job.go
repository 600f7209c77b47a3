package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/comanda-backend/pkg/logger"
)

type claimExpirer interface {
	ExpireClaims(ctx context.Context) (int64, error)
}

// TakeoverExpiryJobParams configure the takeover expiry sweeper.
type TakeoverExpiryJobParams struct {
	Logger        *logger.Logger
	Conversations claimExpirer
}

// NewTakeoverExpiryJob builds the job that hands expired human claims back
// to the bot.
func NewTakeoverExpiryJob(params TakeoverExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Conversations == nil {
		return nil, fmt.Errorf("conversations service required")
	}
	return &takeoverExpiryJob{logg: params.Logger, conversations: params.Conversations}, nil
}

type takeoverExpiryJob struct {
	logg          *logger.Logger
	conversations claimExpirer
}

func (j *takeoverExpiryJob) Name() string { return "takeover-expiry" }

func (j *takeoverExpiryJob) Run(ctx context.Context) error {
	released, err := j.conversations.ExpireClaims(ctx)
	if err != nil {
		return err
	}
	if released > 0 {
		j.logg.Info(j.logg.WithField(ctx, "released", released), "expired takeovers returned to bot")
	}
	return nil
}
