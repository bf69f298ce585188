package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"devicemodel/internal/models"
)

func (s *Server) PostReports(w http.ResponseWriter, r *http.Request) {
	station := chi.URLParam(r, "stationId")
	var reports []models.ReportDataType
	if err := decodeBody(r, &reports); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	out := make([]models.VariableAttribute, 0, len(reports))
	for _, rd := range reports {
		saved, err := s.Repo.CreateOrUpdateDeviceModelByStationID(r.Context(), rd, station)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, saved...)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) PostGetVariablesResults(w http.ResponseWriter, r *http.Request) {
	var results []models.GetVariableResultType
	if err := decodeBody(r, &results); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	out, err := s.Repo.CreateOrUpdateByGetVariablesResultAndStationID(r.Context(), results, chi.URLParam(r, "stationId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) PostSetVariablesData(w http.ResponseWriter, r *http.Request) {
	var data []models.SetVariableDataType
	if err := decodeBody(r, &data); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	out, err := s.Repo.CreateOrUpdateBySetVariablesDataAndStationID(r.Context(), data, chi.URLParam(r, "stationId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) PostSetVariablesResult(w http.ResponseWriter, r *http.Request) {
	var result models.SetVariableResultType
	if err := decodeBody(r, &result); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	va, err := s.Repo.UpdateResultByStationID(r.Context(), result, chi.URLParam(r, "stationId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, va)
}

func (s *Server) GetBootSetVariables(w http.ResponseWriter, r *http.Request) {
	data, err := s.Repo.ReadAllSetVariableByStationID(r.Context(), chi.URLParam(r, "stationId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

type bootConfigReq struct {
	BootConfigSetID      string `json:"bootConfigSetId"`
	VariableAttributeIDs []uint `json:"variableAttributeIds"`
}

func (s *Server) PutBootConfig(w http.ResponseWriter, r *http.Request) {
	var req bootConfigReq
	if err := decodeBody(r, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	out, err := s.Repo.AssignBootConfigSet(r.Context(), req.BootConfigSetID, chi.URLParam(r, "stationId"), req.VariableAttributeIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ApplyBootConfig(w http.ResponseWriter, r *http.Request) {
	sent, err := s.Boot.Apply(r.Context(), chi.URLParam(r, "stationId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": len(sent), "setVariableData": sent})
}
