package chi

import (
	"time"

	"github.com/GitHub-HackDay/sumview/internal/domain/job"
	"github.com/GitHub-HackDay/sumview/internal/domain/recording"
	"github.com/GitHub-HackDay/sumview/internal/domain/search/result"
)

// errorCode is a machine-readable error identifier in error responses.
type errorCode string

const (
	codeBadRequest        errorCode = "bad_request"
	codeValidationFailed  errorCode = "validation_failed"
	codeJobNotFound       errorCode = "job_not_found"
	codeRecordingNotFound errorCode = "recording_not_found"
	codeResourceExhausted errorCode = "resource_exhausted"
	codeIndexUnavailable  errorCode = "index_unavailable"
	codeProviderError     errorCode = "provider_error"
	codeInternalError     errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type jobCreatedResponse struct {
	JobID       string `json:"job_id"`
	RecordingID string `json:"recording_id"`
	Filename    string `json:"filename"`
}

type jobSnapshotDTO struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	Overall      float64   `json:"overall_percent"`
	Stage        string    `json:"stage,omitempty"`
	StagePercent float64   `json:"stage_percent,omitempty"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

func snapshotToDTO(snap job.Snapshot) jobSnapshotDTO {
	return jobSnapshotDTO{
		JobID:        snap.JobID,
		Status:       string(snap.Status),
		Overall:      snap.Overall,
		Stage:        snap.Stage,
		StagePercent: snap.StagePercent,
		Error:        snap.Error,
		At:           snap.At,
	}
}

type segmentDTO struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type questionDTO struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
}

type recordingDTO struct {
	ID         string        `json:"id"`
	Filename   string        `json:"filename"`
	Transcript string        `json:"transcript,omitempty"`
	Segments   []segmentDTO  `json:"segments,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	Article    string        `json:"article,omitempty"`
	KeyPoints  []string      `json:"key_points,omitempty"`
	Questions  []questionDTO `json:"questions,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

func recordingToDTO(rec *recording.Recording) recordingDTO {
	dto := recordingDTO{
		ID:         rec.ID,
		Filename:   rec.Filename,
		Transcript: rec.Transcript,
		Summary:    rec.Summary,
		Article:    rec.Article,
		KeyPoints:  rec.KeyPoints,
		CreatedAt:  rec.CreatedAt,
	}
	for _, s := range rec.Segments {
		dto.Segments = append(dto.Segments, segmentDTO(s))
	}
	for _, q := range rec.Questions {
		dto.Questions = append(dto.Questions, questionDTO{
			Prompt:  q.Prompt,
			Options: q.Options,
			Answer:  q.Answer,
		})
	}
	return dto
}

// listSummaryLimit caps the summary preview length in list responses.
const listSummaryLimit = 240

type recordingListItemDTO struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Summary   string    `json:"summary,omitempty"`
	Segments  int       `json:"segments"`
	Questions int       `json:"questions"`
	CreatedAt time.Time `json:"created_at"`
}

func recordingToListItemDTO(rec *recording.Recording) recordingListItemDTO {
	summary := rec.Summary
	if runes := []rune(summary); len(runes) > listSummaryLimit {
		summary = string(runes[:listSummaryLimit]) + "..."
	}
	return recordingListItemDTO{
		ID:        rec.ID,
		Filename:  rec.Filename,
		Summary:   summary,
		Segments:  len(rec.Segments),
		Questions: len(rec.Questions),
		CreatedAt: rec.CreatedAt,
	}
}

type recordingListResponse struct {
	Items []recordingListItemDTO `json:"items"`
	Total int                    `json:"total"`
}

type searchResultDTO struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Semantic float64 `json:"semantic_score"`
	Lexical  float64 `json:"lexical_score"`
	Content  string  `json:"content"`
	Rank     int     `json:"rank"`
}

type searchResponse struct {
	Items        []searchResultDTO `json:"items"`
	Total        int               `json:"total"`
	Degraded     bool              `json:"degraded,omitempty"`
	FailedSource string            `json:"failed_source,omitempty"`
}

func searchSetToDTO(set result.Set) searchResponse {
	items := make([]searchResultDTO, len(set.Results))
	for i := range set.Results {
		r := &set.Results[i]
		items[i] = searchResultDTO{
			ID:       r.ID(),
			Score:    r.Fused(),
			Semantic: r.Semantic(),
			Lexical:  r.Lexical(),
			Content:  r.Content(),
			Rank:     r.Rank(),
		}
	}
	resp := searchResponse{Items: items, Total: len(items), Degraded: set.Degraded}
	if set.Degraded {
		resp.FailedSource = string(set.FailedSource)
	}
	return resp
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
