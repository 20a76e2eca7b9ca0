package http

import (
	"net/http"

	"go.uber.org/zap"

	"loandesk/db"
	"loandesk/ml"
	"loandesk/monitoring"
)

type predictResponse struct {
	Label   ml.Label `json:"label"`
	Result  string   `json:"result"`
	Display string   `json:"display"`
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var applicant ml.Applicant
	if err := decodeJSON(r, &applicant); err != nil {
		badRequest(w, "invalid applicant: "+err.Error())
		return
	}
	a.predictOne(w, r, "api", ml.Encode(applicant))
}

// Four-field form, the rest defaulted.
func (a *API) handlePredictQuick(w http.ResponseWriter, r *http.Request) {
	var applicant ml.QuickApplicant
	if err := decodeJSON(r, &applicant); err != nil {
		badRequest(w, "invalid applicant: "+err.Error())
		return
	}
	a.predictOne(w, r, "api_quick", ml.EncodeQuick(applicant))
}

func (a *API) predictOne(w http.ResponseWriter, r *http.Request, source string, row ml.FeatureRow) {
	batch := ml.Batch{Schema: ml.ApplicantSchema, Rows: []ml.FeatureRow{row}}
	labels, err := a.classifier.Predict(batch)
	if err != nil {
		a.logger.Warn("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("source", source),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	label := labels[0]

	a.metrics.IncrCounter("predictions_total", map[string]string{"result": label.String()})
	a.audit("prediction", db.SavePrediction(source, ml.ApplicantSchema, row, label))
	if a.hub != nil {
		a.hub.Publish(monitoring.PredictionMade, source, predictResponse{Label: label, Result: label.String(), Display: label.Display()})
	}

	writeJSON(w, http.StatusOK, predictResponse{Label: label, Result: label.String(), Display: label.Display()})
}

func (a *API) handlePredictionLog(w http.ResponseWriter, r *http.Request) {
	logs, err := db.LoadPredictions(queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
