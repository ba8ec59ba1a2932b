package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compareset/compare"
)

func getJobStatusHandler(c *gin.Context) {
	jobID := c.Param("job_id")

	job, exists := jobStore.snapshot(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, jobResponse(job))
}

func getAllJobsHandler(c *gin.Context) {
	jobs := jobStore.GetAllJobs()

	jobList := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		jobList = append(jobList, jobResponse(job))
	}

	c.JSON(http.StatusOK, jobList)
}

func jobResponse(job Job) gin.H {
	response := gin.H{
		"job_id":      job.ID,
		"status":      job.Status,
		"mode":        job.Mode,
		"preset":      job.Preset,
		"created_at":  job.CreatedAt,
		"updated_at":  job.UpdatedAt,
		"pages_done":  job.PagesDone,
		"total_pages": job.TotalPages,
	}

	if job.Status == "completed" {
		response["result"] = job.Result
	} else if job.Status == "failed" {
		response["error"] = job.Error
	}

	return response
}

// cancelJobHandler handles the POST /api/jobs/:job_id/cancel endpoint
func cancelJobHandler(c *gin.Context) {
	jobID := c.Param("job_id")

	job, exists := jobStore.snapshot(jobID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	if job.Status != "pending" && job.Status != "in_progress" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job is not running"})
		return
	}

	if !cancelJob(jobID) {
		// Pending jobs have no canceller yet; mark them directly.
		jobStore.updateJobStatus(jobID, "cancelled", "Job cancelled before start")
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": "cancelling"})
}

// getPresetsHandler handles the GET /api/presets endpoint
func getPresetsHandler(c *gin.Context) {
	names := compare.PresetNames()
	presetList := make([]compare.Preset, 0, len(names))
	for _, name := range names {
		preset, err := compare.PresetByName(name)
		if err != nil {
			continue
		}
		presetList = append(presetList, preset)
	}
	c.JSON(http.StatusOK, presetList)
}
