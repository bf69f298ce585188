package services

import (
	"context"

	"devicemodel/internal/models"
)

type fakeDeviceModel struct {
	reports    []models.ReportDataType
	getResults []models.GetVariableResultType
	setData    []models.SetVariableDataType
	setResults []models.SetVariableResultType
	stations   []string
	boot       []models.SetVariableDataType
	err        error
}

func (f *fakeDeviceModel) CreateOrUpdateDeviceModelByStationID(_ context.Context, report models.ReportDataType, stationID string) ([]models.VariableAttribute, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reports = append(f.reports, report)
	f.stations = append(f.stations, stationID)
	return make([]models.VariableAttribute, len(report.VariableAttribute)), nil
}

func (f *fakeDeviceModel) CreateOrUpdateByGetVariablesResultAndStationID(_ context.Context, results []models.GetVariableResultType, stationID string) ([]models.VariableAttribute, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.getResults = append(f.getResults, results...)
	f.stations = append(f.stations, stationID)
	return make([]models.VariableAttribute, len(results)), nil
}

func (f *fakeDeviceModel) CreateOrUpdateBySetVariablesDataAndStationID(_ context.Context, data []models.SetVariableDataType, stationID string) ([]models.VariableAttribute, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.setData = append(f.setData, data...)
	f.stations = append(f.stations, stationID)
	return make([]models.VariableAttribute, len(data)), nil
}

func (f *fakeDeviceModel) UpdateResultByStationID(_ context.Context, result models.SetVariableResultType, stationID string) (models.VariableAttribute, error) {
	if f.err != nil {
		return models.VariableAttribute{}, f.err
	}
	f.setResults = append(f.setResults, result)
	f.stations = append(f.stations, stationID)
	return models.VariableAttribute{}, nil
}

func (f *fakeDeviceModel) ReadAllSetVariableByStationID(context.Context, string) ([]models.SetVariableDataType, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.boot, nil
}

type fakeGateway struct {
	status  int
	err     error
	station string
	sent    []models.SetVariableDataType
}

func (g *fakeGateway) SetVariables(_ context.Context, stationID string, data []models.SetVariableDataType) (int, []byte, error) {
	g.station = stationID
	g.sent = data
	return g.status, []byte(`{}`), g.err
}
