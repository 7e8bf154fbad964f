// Package handlers is made to handle requests
package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"mp3nema/analyzer"
	"mp3nema/audio"
	"mp3nema/config"
	"mp3nema/metrics"
	"mp3nema/models"
	"mp3nema/stego"
)

// maxUpload bounds multipart form memory.
const maxUpload = 32 << 20

type StegoHandler struct {
	cfg     *config.Config
	metrics *metrics.Metrics
}

func NewStegoHandler(cfg *config.Config, m *metrics.Metrics) *StegoHandler {
	return &StegoHandler{cfg: cfg, metrics: m}
}

func (h *StegoHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "mp3nema API is running",
		"version": Version,
	})
}

// Analyze scans an uploaded MP3 and reports its frames, tags and OOB regions.
func (h *StegoHandler) Analyze(c *gin.Context) {
	audioData, name, ok := h.readUpload(c, "audio_file")
	if !ok {
		return
	}

	report, err := analyzer.Analyze(bytes.NewReader(audioData), h.analyzeOptions(nil))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to analyze '%s': %v", name, err))
		return
	}

	resp := models.AnalyzeResponse{
		Success:        true,
		Frames:         report.Frames,
		Tags:           report.Tags,
		OOBBytes:       report.OOBBytes,
		AncillaryBytes: report.AncillaryBytes,
		Truncated:      report.Truncated,
	}
	for _, r := range report.OOBRegions {
		resp.OOBRegions = append(resp.OOBRegions, models.OOBRegion{Offset: r.Offset, Size: r.Size})
	}
	c.JSON(http.StatusOK, resp)
}

// Inject spreads secret_file between the frames of audio_file and returns
// the new MP3.
func (h *StegoHandler) Inject(c *gin.Context) {
	var req models.InjectRequest
	if err := c.ShouldBind(&req); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid form: %v", err))
		return
	}

	audioData, name, ok := h.readUpload(c, "audio_file")
	if !ok {
		return
	}
	secretData, _, ok := h.readUpload(c, "secret_file")
	if !ok {
		return
	}

	opts := stego.Options{
		Guard:           h.cfg.GuardFrames,
		MaxFrameRetries: h.cfg.Scan.MaxFrameRetries,
	}
	if req.GuardFrames != nil {
		opts.Guard = *req.GuardFrames
	}

	var out bytes.Buffer
	res, err := stego.Inject(bytes.NewReader(audioData), bytes.NewReader(secretData), &out, int64(len(secretData)), opts)
	h.metrics.RecordInjection(injected(res), err)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to inject payload: %v", err))
		return
	}

	if req.Verify {
		v, err := audio.Verify(audioData, out.Bytes(), audio.DefaultPSNRThreshold)
		if err != nil {
			log.Printf("Warning: could not verify injected audio: %v", err)
		} else {
			c.Header("X-Mp3nema-PSNR", fmt.Sprintf("%.2f", v.PSNR))
			c.Header("X-Mp3nema-Transparent", fmt.Sprintf("%t", v.Transparent))
		}
	}

	baseFilename := strings.TrimSuffix(name, filepath.Ext(name))
	outputFilename := fmt.Sprintf("%s-injected.mp3", baseFilename)

	// Set headers for file download
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputFilename))
	c.Header("X-Mp3nema-Frames", fmt.Sprintf("%d", res.Plan.Frames))
	c.Header("X-Mp3nema-Blocks", fmt.Sprintf("%d", res.Plan.BlockCount))
	c.Header("X-Mp3nema-Block-Size", fmt.Sprintf("%d", res.Plan.BlockSize))

	c.Data(http.StatusOK, "audio/mpeg", out.Bytes())
}

// Extract returns the OOB bytes of an uploaded MP3.
func (h *StegoHandler) Extract(c *gin.Context) {
	audioData, name, ok := h.readUpload(c, "audio_file")
	if !ok {
		return
	}

	var oob bytes.Buffer
	report, err := analyzer.Analyze(bytes.NewReader(audioData), h.analyzeOptions(&oob))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to extract from '%s': %v", name, err))
		return
	}

	baseFilename := strings.TrimSuffix(name, filepath.Ext(name))

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-extracted-oob.dat", baseFilename))
	c.Header("X-Mp3nema-Frames", fmt.Sprintf("%d", report.Frames))
	c.Header("X-Mp3nema-OOB-Bytes", fmt.Sprintf("%d", report.OOBBytes))

	c.Data(http.StatusOK, "application/octet-stream", oob.Bytes())
}

func (h *StegoHandler) analyzeOptions(sink io.Writer) analyzer.Options {
	return analyzer.Options{
		MaxFrameRetries: h.cfg.Scan.MaxFrameRetries,
		Regions:         true,
		OOBSink:         sink,
		Metrics:         h.metrics,
		Source:          metrics.SourceUpload,
	}
}

func (h *StegoHandler) readUpload(c *gin.Context, field string) ([]byte, string, bool) {
	if err := c.Request.ParseMultipartForm(maxUpload); err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return nil, "", false
	}

	file, header, err := c.Request.FormFile(field)
	if err != nil {
		h.fail(c, http.StatusBadRequest, fmt.Sprintf("%s is required", field))
		return nil, "", false
	}
	defer file.Close()

	if field == "audio_file" && !h.isMediaFile(header) {
		h.fail(c, http.StatusBadRequest, "Invalid audio file format. Only MP3 files are supported")
		return nil, "", false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, fmt.Sprintf("Failed to read %s: %v", field, err))
		return nil, "", false
	}
	return data, header.Filename, true
}

func (h *StegoHandler) fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Success:   false,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}

func injected(res *stego.Result) int64 {
	if res == nil {
		return 0
	}
	return res.Injected
}

func (h *StegoHandler) isMediaFile(header *multipart.FileHeader) bool {
	return strings.EqualFold(filepath.Ext(header.Filename), h.cfg.MediaExt)
}
