package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/zapi"
)

type providerStatus interface {
	Status(ctx context.Context) (zapi.ConnectionState, error)
}

// MessagingHealthJobParams configure the provider connection check.
type MessagingHealthJobParams struct {
	Logger   *logger.Logger
	Provider providerStatus
}

// NewMessagingHealthJob builds the job that fails while the WhatsApp
// instance is disconnected.
func NewMessagingHealthJob(params MessagingHealthJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("messaging provider required")
	}
	return &messagingHealthJob{logg: params.Logger, provider: params.Provider}, nil
}

type messagingHealthJob struct {
	logg     *logger.Logger
	provider providerStatus
}

func (j *messagingHealthJob) Name() string { return "messaging-health" }

func (j *messagingHealthJob) Run(ctx context.Context) error {
	state, err := j.provider.Status(ctx)
	if err != nil {
		return err
	}
	if !state.Connected {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"smartphone_connected": state.SmartphoneConnected,
			"provider_error":       state.Error,
		}), "messaging instance disconnected")
		return fmt.Errorf("messaging instance disconnected")
	}
	return nil
}
