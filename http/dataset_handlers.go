package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"loandesk/dataset"
	"loandesk/ml"
)

type datasetResponse struct {
	Name        string          `json:"name"`
	Schema      string          `json:"schema"`
	Columns     []string        `json:"columns"`
	LabelColumn string          `json:"label_column"`
	Count       int             `json:"count"`
	Rows        []ml.FeatureRow `json:"rows"`
	Labels      []ml.Label      `json:"labels"`
}

func newDatasetResponse(ds *dataset.Dataset) datasetResponse {
	resp := datasetResponse{
		Name:        ds.Name,
		Schema:      ds.Schema.Name,
		Columns:     ds.Schema.Columns,
		LabelColumn: ds.LabelColumn,
		Count:       ds.Len(),
		Rows:        ds.Rows,
		Labels:      ds.Labels,
	}
	if resp.Rows == nil {
		resp.Rows = []ml.FeatureRow{}
		resp.Labels = []ml.Label{}
	}
	return resp
}

type datasetSummary struct {
	Name    string   `json:"name"`
	Schema  string   `json:"schema"`
	Columns []string `json:"columns"`
}

func (a *API) handleDatasets(w http.ResponseWriter, r *http.Request) {
	names := a.store.Names()
	summaries := make([]datasetSummary, 0, len(names))
	for _, name := range names {
		def, err := a.store.Definition(name)
		if err != nil {
			writeError(w, err)
			return
		}
		summaries = append(summaries, datasetSummary{Name: name, Schema: def.Schema.Name, Columns: def.Schema.Columns})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (a *API) handleDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := a.store.List(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDatasetResponse(ds))
}

type appendRequest struct {
	Attributes map[string]any `json:"attributes"`
	Label      *ml.Label      `json:"label"`
}

type mutationResponse struct {
	Dataset string `json:"dataset"`
	Index   int    `json:"index"`
	Count   int    `json:"count"`
}

func (a *API) handleAppendRow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	def, err := a.store.Definition(name)
	if err != nil {
		writeError(w, err)
		return
	}

	var req appendRequest
	if err := decodeJSON(r, &req); err != nil {
		if errors.Is(err, ml.ErrInvalidLabel) {
			writeError(w, err)
			return
		}
		badRequest(w, "invalid row: "+err.Error())
		return
	}
	if req.Label == nil {
		writeError(w, fmt.Errorf("%w: label is required", ml.ErrInvalidLabel))
		return
	}
	row, err := ml.EncodeAttributes(def.Schema, req.Attributes)
	if err != nil {
		writeError(w, err)
		return
	}

	added, err := a.store.Append(name, row, *req.Label)
	if err != nil {
		a.logger.Warn("append failed", zap.String("dataset", name), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Dataset: name, Index: added, Count: added + 1})
}

func (a *API) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		badRequest(w, "row index must be an integer")
		return
	}
	count, err := a.store.Delete(name, index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Dataset: name, Index: index, Count: count})
}
