// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package campaign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"axonflow/campaign/shared/logger"
)

// MaxUploadSize is the maximum accepted video upload (500MB)
const MaxUploadSize = 500 * 1024 * 1024

// demoTranscript is returned when no speech-to-text service is reachable,
// so the pipeline stays demoable end to end.
const demoTranscript = "This is a demo transcript. The video discusses innovative marketing strategies using AI-powered automation to transform content creation and distribution across multiple platforms."

// allowedVideoExtensions are the accepted upload container formats
var allowedVideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".avi":  true,
	".mkv":  true,
}

// Transcriber turns an uploaded video into a transcript: extract the audio
// track with ffmpeg, then send it to the configured speech-to-text service.
type Transcriber struct {
	sttURL    string
	sttAPIKey string
	client    *http.Client
	logger    *logger.Logger
}

// TranscriptionResult is the outcome of processing one video
type TranscriptionResult struct {
	VideoTitle       string  `json:"video_title"`
	Transcript       string  `json:"transcript"`
	TranscriptLength int     `json:"transcript_length"`
	Source           string  `json:"source"` // "stt" or "demo"
	ProcessingTime   float64 `json:"processing_time"`
}

// sttResponse is the Watson-style recognize response shape
type sttResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// NewTranscriber creates a transcriber from STT_URL / STT_API_KEY
func NewTranscriber(sttURL, sttAPIKey string) *Transcriber {
	return &Transcriber{
		sttURL:    sttURL,
		sttAPIKey: sttAPIKey,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger.New("transcriber"),
	}
}

// ValidateUpload checks filename extension and size before processing
func (t *Transcriber) ValidateUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedVideoExtensions[ext] {
		return fmt.Errorf("invalid file type %q, allowed: .mp4 .mov .webm .avi .mkv", ext)
	}
	if size > MaxUploadSize {
		return fmt.Errorf("file too large (%d bytes), maximum size: %dMB", size, MaxUploadSize/(1024*1024))
	}
	return nil
}

// ProcessVideo writes the upload to a temp file, extracts audio and transcribes it
func (t *Transcriber) ProcessVideo(ctx context.Context, filename string, content io.Reader) (*TranscriptionResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	tmpVideo, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	videoPath := tmpVideo.Name()
	defer os.Remove(videoPath)

	if _, err := io.Copy(tmpVideo, io.LimitReader(content, MaxUploadSize+1)); err != nil {
		tmpVideo.Close()
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}
	tmpVideo.Close()

	if info, err := os.Stat(videoPath); err == nil && info.Size() > MaxUploadSize {
		return nil, fmt.Errorf("file too large, maximum size: %dMB", MaxUploadSize/(1024*1024))
	}

	log.Printf("[Transcriber] Video uploaded: %s -> %s", filename, videoPath)

	audioPath, err := t.extractAudio(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(audioPath)

	log.Printf("[Transcriber] Audio extracted: %s", audioPath)

	transcript, source := t.transcribe(ctx, audioPath)

	t.logger.InfoWithDuration("", "", "Transcription complete",
		float64(time.Since(startTime).Milliseconds()),
		map[string]interface{}{"source": source, "transcript_length": len(transcript)})

	return &TranscriptionResult{
		VideoTitle:       filename,
		Transcript:       transcript,
		TranscriptLength: len(transcript),
		Source:           source,
		ProcessingTime:   time.Since(startTime).Seconds(),
	}, nil
}

// extractAudio converts the video to 16kHz mono PCM WAV with ffmpeg
func (t *Transcriber) extractAudio(ctx context.Context, videoPath string) (string, error) {
	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".wav"

	ffmpegCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ffmpegCtx, "ffmpeg",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		audioPath,
		"-y",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ffmpegCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("audio extraction timed out")
		}
		log.Printf("[Transcriber] FFmpeg error: %s", stderr.String())
		return "", fmt.Errorf("failed to extract audio from video: %w", err)
	}

	return audioPath, nil
}

// transcribe sends the WAV to the speech-to-text service. Any failure
// returns the demo transcript so downstream stages still run.
func (t *Transcriber) transcribe(ctx context.Context, audioPath string) (string, string) {
	if t.sttURL == "" || t.sttAPIKey == "" {
		log.Printf("[Transcriber] No STT service configured, using demo transcript")
		return demoTranscript, "demo"
	}

	transcript, err := t.recognize(ctx, audioPath)
	if err != nil {
		log.Printf("[Transcriber] STT error, using demo transcript: %v", err)
		return demoTranscript, "demo"
	}

	if strings.TrimSpace(transcript) == "" {
		log.Printf("[Transcriber] STT returned empty transcript, using demo transcript")
		return demoTranscript, "demo"
	}

	return transcript, "stt"
}

// recognize calls the Watson-compatible recognize endpoint
func (t *Transcriber) recognize(ctx context.Context, audioPath string) (string, error) {
	audioFile, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer audioFile.Close()

	url := strings.TrimSuffix(t.sttURL, "/") + "/v1/recognize?model=en-US_BroadbandModel&smart_formatting=true"

	req, err := http.NewRequestWithContext(ctx, "POST", url, audioFile)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.SetBasicAuth("apikey", t.sttAPIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("STT error %d: %s", resp.StatusCode, string(body))
	}

	var result sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	var transcript strings.Builder
	for _, r := range result.Results {
		for _, alt := range r.Alternatives {
			transcript.WriteString(alt.Transcript)
			transcript.WriteString(" ")
		}
	}

	return strings.TrimSpace(transcript.String()), nil
}

// IsConfigured reports whether a real STT backend is set up
func (t *Transcriber) IsConfigured() bool {
	return t.sttURL != "" && t.sttAPIKey != ""
}
