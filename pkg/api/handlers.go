package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/influence-diffusion/pkg/experiment"
	"github.com/gilchrisn/influence-diffusion/pkg/models"
	"github.com/gilchrisn/influence-diffusion/pkg/service"
	"github.com/gilchrisn/influence-diffusion/pkg/utils"
)

const version = "1.0.0"

// maxRequestBody bounds experiment submissions
const maxRequestBody = 1 << 20

// Handlers contains HTTP request handlers
type Handlers struct {
	jobService *service.JobService
}

// NewHandlers creates new API handlers
func NewHandlers(jobService *service.JobService) *Handlers {
	return &Handlers{jobService: jobService}
}

// SubmitExperiment queues a strategy comparison
func (h *Handlers) SubmitExperiment(w http.ResponseWriter, r *http.Request) {
	if !utils.ValidateContentType(r, "application/json") {
		utils.WriteErrorResponse(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	var params models.JobParameters
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&params); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.jobService.Submit(params)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidParameters) {
			status = http.StatusBadRequest
		}
		log.Warn().Err(err).Msg("Experiment submission rejected")
		utils.WriteErrorResponse(w, status, "Failed to submit experiment", err)
		return
	}

	utils.WriteStatusResponse(w, http.StatusAccepted, "Experiment submitted", models.SubmitResponse{
		JobID: job.ID,
		Job:   *job,
	})
}

// ListExperiments lists jobs, oldest first, paginated
func (h *Handlers) ListExperiments(w http.ResponseWriter, r *http.Request) {
	page, limit := utils.ExtractPaginationParams(r)
	jobs := h.jobService.List()
	start, end := utils.Paginate(len(jobs), page, limit)

	utils.WriteSuccessResponse(w, "Experiments retrieved successfully", map[string]interface{}{
		"jobs":  jobs[start:end],
		"total": len(jobs),
		"page":  page,
		"limit": limit,
	})
}

// GetExperiment returns job status and progress
func (h *Handlers) GetExperiment(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobService.Get(jobID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Experiment not found", err)
		return
	}

	utils.WriteSuccessResponse(w, "Experiment retrieved successfully", job)
}

// GetExperimentResult returns the averaged series of every cell
func (h *Handlers) GetExperimentResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	result, err := h.jobService.GetResult(r.Context(), jobID)
	switch {
	case err == nil:
		utils.WriteSuccessResponse(w, "Result retrieved successfully", result)
	case errors.Is(err, service.ErrJobNotFound), errors.Is(err, service.ErrResultNotFound):
		utils.WriteErrorResponse(w, http.StatusNotFound, "Result not found", err)
	case errors.Is(err, service.ErrJobNotFinished):
		utils.WriteErrorResponse(w, http.StatusConflict, "Experiment has not completed", err)
	default:
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load result")
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to load result", err)
	}
}

// CancelExperiment cancels a queued or running job
func (h *Handlers) CancelExperiment(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	if err := h.jobService.Cancel(jobID); err != nil {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Experiment not found", err)
		return
	}

	job, err := h.jobService.Get(jobID)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusNotFound, "Experiment not found", err)
		return
	}
	utils.WriteSuccessResponse(w, "Experiment cancelled", job)
}

// HealthCheck returns server health status
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, "Service is healthy", models.HealthResponse{
		Status:     "healthy",
		Store:      h.jobService.StoreBackend(),
		ActiveJobs: h.jobService.ActiveJobs(),
		Version:    version,
	})
}

// ListStrategies lists the vaccination strategies
func (h *Handlers) ListStrategies(w http.ResponseWriter, r *http.Request) {
	descriptions := map[experiment.Strategy]string{
		experiment.StrategyRandom:      "Vaccinated nodes drawn uniformly at random for every trial",
		experiment.StrategyDegree:      "Vaccinate the nodes with the highest degree",
		experiment.StrategyBetweenness: "Vaccinate the nodes with the highest betweenness centrality",
	}

	strategies := make([]map[string]string, 0, len(descriptions))
	for _, strategy := range experiment.Strategies() {
		strategies = append(strategies, map[string]string{
			"name":        string(strategy),
			"description": descriptions[strategy],
		})
	}
	utils.WriteSuccessResponse(w, "Strategies retrieved successfully", strategies)
}
