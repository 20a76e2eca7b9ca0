package http

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"loandesk/dataset"
	"loandesk/db"
	"loandesk/ml"
)

const uploadMemory = 8 << 20

type evaluationResponse struct {
	Source string              `json:"source"`
	Result ml.EvaluationResult `json:"result"`
	Report string              `json:"report"`
}

func (a *API) handleEvaluateDataset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ds, err := a.store.List(name)
	if err != nil {
		writeError(w, err)
		return
	}
	a.evaluate(w, r, "dataset:"+name, ds.Batch(), ds.Labels)
}

func (a *API) handleEvaluateUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		badRequest(w, "expected multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	var batch ml.Batch
	err := readPart(r, "features", func(f multipart.File) (err error) {
		batch, err = dataset.ReadBatch(f, "upload")
		return err
	})
	if err != nil {
		a.writeUploadError(w, err)
		return
	}
	var labels []ml.Label
	err = readPart(r, "labels", func(f multipart.File) (err error) {
		_, labels, err = dataset.ReadLabelTable(f)
		return err
	})
	if err != nil {
		a.writeUploadError(w, err)
		return
	}
	a.evaluate(w, r, "upload", batch, labels)
}

type missingPartError string

func (e missingPartError) Error() string { return fmt.Sprintf("missing %q file", string(e)) }

func readPart(r *http.Request, field string, read func(multipart.File) error) error {
	file, _, err := r.FormFile(field)
	if err != nil {
		return missingPartError(field)
	}
	defer file.Close()
	return read(file)
}

func (a *API) writeUploadError(w http.ResponseWriter, err error) {
	if _, ok := err.(missingPartError); ok {
		badRequest(w, err.Error())
		return
	}
	// the client sent the bad file, so this is not a server-side outage
	writeErrorStatus(w, http.StatusUnprocessableEntity, err)
}

func (a *API) evaluate(w http.ResponseWriter, r *http.Request, source string, batch ml.Batch, truth []ml.Label) {
	result, err := ml.Evaluate(a.classifier, batch, truth)
	if err != nil {
		a.logger.Warn("evaluation failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.String("source", source),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}

	a.logger.Info("evaluation finished",
		zap.String("source", source),
		zap.Int("total", result.Total),
		zap.Float64("accuracy_pct", result.AccuracyPct),
	)
	a.metrics.IncrCounter("evaluations_total", map[string]string{"source": source})
	a.audit("evaluation", db.SaveEvaluation(source, result))
	if a.hub != nil {
		a.hub.EvaluationEvent(source, result)
	}

	writeJSON(w, http.StatusOK, evaluationResponse{
		Source: source,
		Result: result,
		Report: ml.FormatReport(result, requestLanguage(r)),
	})
}

func (a *API) handleEvaluationLog(w http.ResponseWriter, r *http.Request) {
	logs, err := db.LoadEvaluationLog(queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
