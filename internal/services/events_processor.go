package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"devicemodel/internal/models"
)

// DeviceModel is the part of the device model repository the processor and the
// boot configurator write through.
type DeviceModel interface {
	CreateOrUpdateDeviceModelByStationID(ctx context.Context, report models.ReportDataType, stationID string) ([]models.VariableAttribute, error)
	CreateOrUpdateByGetVariablesResultAndStationID(ctx context.Context, results []models.GetVariableResultType, stationID string) ([]models.VariableAttribute, error)
	CreateOrUpdateBySetVariablesDataAndStationID(ctx context.Context, data []models.SetVariableDataType, stationID string) ([]models.VariableAttribute, error)
	UpdateResultByStationID(ctx context.Context, result models.SetVariableResultType, stationID string) (models.VariableAttribute, error)
	ReadAllSetVariableByStationID(ctx context.Context, stationID string) ([]models.SetVariableDataType, error)
}

// DeviceModelProcessor applies device-management messages relayed by the OCPP
// gateway as {"type", "stationId", "payload"} envelopes.
type DeviceModelProcessor struct {
	Repo DeviceModel
	log  *zap.Logger
}

func NewDeviceModelProcessor(repo DeviceModel, log *zap.Logger) *DeviceModelProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceModelProcessor{Repo: repo, log: log}
}

func (p *DeviceModelProcessor) Ingest(ctx context.Context, raw []byte) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: malformed json", ErrInvalidEvent)
	}
	env := gjson.ParseBytes(raw)
	typ := env.Get("type").String()
	if typ == "" {
		return "", fmt.Errorf("%w: missing type", ErrInvalidEvent)
	}
	station := env.Get("stationId").String()
	if station == "" {
		return typ, fmt.Errorf("%w: missing stationId", ErrInvalidEvent)
	}
	payload := env.Get("payload")

	var written int
	switch typ {
	case "NotifyReport":
		var reports []models.ReportDataType
		if err := decode(payload.Get("reportData"), &reports); err != nil {
			return typ, err
		}
		for _, rd := range reports {
			out, err := p.Repo.CreateOrUpdateDeviceModelByStationID(ctx, rd, station)
			if err != nil {
				return typ, err
			}
			written += len(out)
		}

	case "GetVariablesResponse":
		var results []models.GetVariableResultType
		if err := decode(payload.Get("getVariableResult"), &results); err != nil {
			return typ, err
		}
		out, err := p.Repo.CreateOrUpdateByGetVariablesResultAndStationID(ctx, results, station)
		if err != nil {
			return typ, err
		}
		written = len(out)

	case "SetVariablesRequest":
		var data []models.SetVariableDataType
		if err := decode(payload.Get("setVariableData"), &data); err != nil {
			return typ, err
		}
		out, err := p.Repo.CreateOrUpdateBySetVariablesDataAndStationID(ctx, data, station)
		if err != nil {
			return typ, err
		}
		written = len(out)

	case "SetVariablesResponse":
		var results []models.SetVariableResultType
		if err := decode(payload.Get("setVariableResult"), &results); err != nil {
			return typ, err
		}
		for _, res := range results {
			if _, err := p.Repo.UpdateResultByStationID(ctx, res, station); err != nil {
				return typ, err
			}
			written++
		}

	default:
		return typ, fmt.Errorf("%w: unsupported type %q", ErrInvalidEvent, typ)
	}

	p.log.Debug("device model event applied",
		zap.String("type", typ), zap.String("station_id", station), zap.Int("attributes", written))
	return typ, nil
}

func decode(r gjson.Result, v any) error {
	if !r.Exists() {
		return nil
	}
	if err := json.Unmarshal([]byte(r.Raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}
