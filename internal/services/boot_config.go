package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"devicemodel/internal/models"
)

type Gateway interface {
	SetVariables(ctx context.Context, stationID string, data []models.SetVariableDataType) (int, []byte, error)
}

// BootConfigurator pushes a station's boot configuration set to it.
type BootConfigurator struct {
	Repo    DeviceModel
	Gateway Gateway
	log     *zap.Logger
}

func NewBootConfigurator(repo DeviceModel, gw Gateway, log *zap.Logger) *BootConfigurator {
	if log == nil {
		log = zap.NewNop()
	}
	return &BootConfigurator{Repo: repo, Gateway: gw, log: log}
}

// Apply sends every boot SetVariable of the station through the gateway and,
// once the gateway accepts the command, stages the values as requested.
func (b *BootConfigurator) Apply(ctx context.Context, stationID string) ([]models.SetVariableDataType, error) {
	data, err := b.Repo.ReadAllSetVariableByStationID(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return data, nil
	}

	status, body, err := b.Gateway.SetVariables(ctx, stationID, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	if status < 200 || status >= 300 {
		b.log.Warn("gateway rejected boot configuration",
			zap.String("station_id", stationID), zap.Int("status", status), zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", ErrGateway, status)
	}

	if _, err := b.Repo.CreateOrUpdateBySetVariablesDataAndStationID(ctx, data, stationID); err != nil {
		return nil, err
	}
	b.log.Info("boot configuration sent", zap.String("station_id", stationID), zap.Int("variables", len(data)))
	return data, nil
}
