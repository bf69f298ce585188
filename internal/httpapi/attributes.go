package httpapi

import (
	"net/http"
	"net/url"
	"strconv"

	"devicemodel/internal/models"
	"devicemodel/internal/repo"
)

func attributeQuery(v url.Values) (repo.VariableAttributeQuery, error) {
	q := repo.VariableAttributeQuery{
		StationID:         v.Get("stationId"),
		ComponentName:     v.Get("component_name"),
		ComponentInstance: v.Get("component_instance"),
		VariableName:      v.Get("variable_name"),
		VariableInstance:  v.Get("variable_instance"),
		Type:              models.AttributeEnum(v.Get("type")),
		Value:             v.Get("value"),
		Status:            v.Get("status"),
	}
	var err error
	if q.ComponentEvseID, err = optionalInt(v.Get("component_evse_id")); err != nil {
		return q, err
	}
	if q.ComponentEvseConnector, err = optionalInt(v.Get("component_evse_connectorId")); err != nil {
		return q, err
	}
	return q, nil
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Server) ListVariableAttributes(w http.ResponseWriter, r *http.Request) {
	q, err := attributeQuery(r.URL.Query())
	if err != nil {
		http.Error(w, "bad query: "+err.Error(), http.StatusBadRequest)
		return
	}
	items, err := s.Repo.ReadAllByQuery(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) CountVariableAttributes(w http.ResponseWriter, r *http.Request) {
	q, err := attributeQuery(r.URL.Query())
	if err != nil {
		http.Error(w, "bad query: "+err.Error(), http.StatusBadRequest)
		return
	}
	n, err := s.Repo.ExistByQuery(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func (s *Server) DeleteVariableAttributes(w http.ResponseWriter, r *http.Request) {
	q, err := attributeQuery(r.URL.Query())
	if err != nil {
		http.Error(w, "bad query: "+err.Error(), http.StatusBadRequest)
		return
	}
	deleted, err := s.Repo.DeleteAllByQuery(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) LookupComponentAndVariable(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	ct := models.ComponentType{Name: v.Get("component_name")}
	vt := models.VariableType{Name: v.Get("variable_name")}
	if ct.Name == "" || vt.Name == "" {
		http.Error(w, "missing component_name/variable_name", http.StatusBadRequest)
		return
	}
	if inst := v.Get("component_instance"); inst != "" {
		ct.Instance = &inst
	}
	if inst := v.Get("variable_instance"); inst != "" {
		vt.Instance = &inst
	}

	found, err := s.Repo.FindComponentAndVariable(r.Context(), ct, vt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}
