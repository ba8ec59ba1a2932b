package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"compareset/compare"
	"compareset/internal/constants"
)

// runServe starts the HTTP API for queued comparisons.
func runServe(args []string) {
	fs := flag.NewFlagSet("compareset serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	workers := fs.Int("workers", 2, "Concurrent comparison jobs")
	rpm := fs.Float64("rpm", 60, "Max submitted comparisons per minute (0 disables limiting)")
	fs.Parse(args)

	startWorkerPool(*workers)

	router := gin.Default()
	router.MaxMultipartMemory = constants.MaxUploadBytes

	var limiter *rate.Limiter
	if *rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(*rpm/60.0), 5)
	}

	api := router.Group("/api")
	{
		api.POST("/compare", func(c *gin.Context) {
			if limiter != nil && !limiter.Allow() {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many comparison requests, slow down"})
				return
			}
			submitCompareJobHandler(c)
		})
		api.GET("/jobs", getAllJobsHandler)
		api.GET("/jobs/:job_id", getJobStatusHandler)
		api.POST("/jobs/:job_id/cancel", cancelJobHandler)
		api.GET("/presets", getPresetsHandler)
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Infof("Server started on %s", *addr)
	if err := router.Run(*addr); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// submitCompareJobHandler handles the POST /api/compare endpoint. It
// accepts a multipart form with "old" and "new" PDF uploads plus
// optional "preset", "mode" and "dpi" fields, and enqueues a job.
func submitCompareJobHandler(c *gin.Context) {
	presetName := c.DefaultPostForm("preset", "balanced")
	mode := c.DefaultPostForm("mode", "raster")
	if mode != "raster" && mode != "vector" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid mode: %s", mode)})
		return
	}
	preset, err := compare.PresetByName(presetName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params := preset.Params
	if dpiStr := c.PostForm("dpi"); dpiStr != "" {
		dpi, err := strconv.Atoi(dpiStr)
		if err != nil || dpi <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid dpi: %s", dpiStr)})
			return
		}
		params.DPI = dpi
	}

	oldPath, err := saveUpload(c, "old")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	newPath, err := saveUpload(c, "new")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := &Job{
		ID:        generateJobID(),
		OldPath:   oldPath,
		NewPath:   newPath,
		Mode:      mode,
		Preset:    presetName,
		Status:    "pending",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Params:    params,
		cleanup:   []string{oldPath, newPath},
	}
	jobStore.addJob(job)

	select {
	case jobQueue <- job:
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
	default:
		jobStore.updateJobStatus(job.ID, "failed", "Job queue is full")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Job queue is full"})
	}
}

// saveUpload stores one multipart PDF upload in a temp file and
// verifies its content type.
func saveUpload(c *gin.Context, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing %q upload: %w", field, err)
	}
	tmp, err := os.CreateTemp("", "compareset-upload-*.pdf")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("saving %q upload: %w", field, err)
	}
	mtype, err := mimetype.DetectFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if !mtype.Is("application/pdf") {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%q upload is %s, not a PDF", field, mtype.String())
	}
	return tmpPath, nil
}
