package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"loandesk/dataset"
	"loandesk/db"
	"loandesk/ml"
	"loandesk/monitoring"
)

type Classifier interface {
	ml.Predictor
	Available() bool
	Reason() error
	Features() []string
}

type API struct {
	store      *dataset.Store
	classifier Classifier
	hub        *monitoring.Hub
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// hub may be nil.
func NewAPI(store *dataset.Store, classifier Classifier, hub *monitoring.Hub, metrics *monitoring.Metrics, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &API{store: store, classifier: classifier, hub: hub, metrics: metrics, logger: logger}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)

	mux.HandleFunc("POST /api/predict", a.handlePredict)
	mux.HandleFunc("POST /api/predict/quick", a.handlePredictQuick)
	mux.HandleFunc("GET /api/predictions", a.handlePredictionLog)

	mux.HandleFunc("GET /api/datasets", a.handleDatasets)
	mux.HandleFunc("GET /api/datasets/{name}", a.handleDataset)
	mux.HandleFunc("POST /api/datasets/{name}/rows", a.handleAppendRow)
	mux.HandleFunc("DELETE /api/datasets/{name}/rows/{index}", a.handleDeleteRow)
	mux.HandleFunc("POST /api/datasets/{name}/evaluate", a.handleEvaluateDataset)

	mux.HandleFunc("POST /api/evaluate", a.handleEvaluateUpload)
	mux.HandleFunc("GET /api/evaluations", a.handleEvaluationLog)
}

type healthResponse struct {
	Status         string   `json:"status"`
	ModelAvailable bool     `json:"model_available"`
	ModelReason    string   `json:"model_reason,omitempty"`
	ModelFeatures  []string `json:"model_features,omitempty"`
	Datasets       []string `json:"datasets"`
	Uptime         string   `json:"uptime"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:         "ok",
		ModelAvailable: a.classifier.Available(),
		ModelFeatures:  a.classifier.Features(),
		Datasets:       a.store.Names(),
		Uptime:         a.metrics.SystemStats()["uptime"].(string),
	}
	if reason := a.classifier.Reason(); reason != nil {
		resp.ModelReason = reason.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(a.metrics.ExportPrometheus()))
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{dataset.ErrUnknownDataset, "unknown_dataset", http.StatusNotFound},
	{dataset.ErrIndexOutOfRange, "index_out_of_range", http.StatusNotFound},
	{dataset.ErrDataUnavailable, "data_unavailable", http.StatusServiceUnavailable},
	{ml.ErrModelUnavailable, "model_unavailable", http.StatusServiceUnavailable},
	{ml.ErrSchemaMismatch, "schema_mismatch", http.StatusUnprocessableEntity},
	{ml.ErrLengthMismatch, "length_mismatch", http.StatusUnprocessableEntity},
	{ml.ErrEmptyInput, "empty_input", http.StatusUnprocessableEntity},
	{ml.ErrInvalidLabel, "invalid_label", http.StatusUnprocessableEntity},
	{db.ErrNotInitialized, "audit_unavailable", http.StatusServiceUnavailable},
}

func classify(err error) (string, int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind, k.status
		}
	}
	return "internal", http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	kind, _ := classify(err)
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, Kind: "bad_request"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()
	return decoder.Decode(v)
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 100
	}
	return limit
}

// ?lang= wins over Accept-Language.
func requestLanguage(r *http.Request) language.Tag {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			return tag
		}
	}
	if tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language")); err == nil && len(tags) > 0 {
		return tags[0]
	}
	return language.Indonesian
}

func (a *API) audit(what string, err error) {
	if err == nil || errors.Is(err, db.ErrNotInitialized) {
		return
	}
	a.logger.Warn("audit write failed", zap.String("record", what), zap.Error(err))
}
