package types

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Stage names the backend pipeline step a progress event refers to
type Stage string

const (
	StageDecoding    Stage = "decoding"
	StageExtracting  Stage = "extracting"
	StageValidating  Stage = "validating"
	StageATSAnalysis Stage = "ats_analysis"
	StageAIAnalysis  Stage = "ai_analysis"
	StageFinalizing  Stage = "finalizing"
	StageComplete    Stage = "complete"
)

// Stages lists every known stage in pipeline order
var Stages = []Stage{
	StageDecoding,
	StageExtracting,
	StageValidating,
	StageATSAnalysis,
	StageAIAnalysis,
	StageFinalizing,
	StageComplete,
}

// Known reports whether s is one of the defined stages
func (s Stage) Known() bool {
	for _, stage := range Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// AnalysisRequest is an immutable résumé analysis request.
// The file bytes are copied on construction and never exposed mutably.
type AnalysisRequest struct {
	fileName       string
	file           []byte
	jobDescription string
}

// NewAnalysisRequest builds a request from raw PDF bytes and an optional job description
func NewAnalysisRequest(fileName string, file []byte, jobDescription string) AnalysisRequest {
	data := make([]byte, len(file))
	copy(data, file)
	return AnalysisRequest{
		fileName:       fileName,
		file:           data,
		jobDescription: strings.TrimSpace(jobDescription),
	}
}

func (r AnalysisRequest) FileName() string       { return r.fileName }
func (r AnalysisRequest) Size() int              { return len(r.file) }
func (r AnalysisRequest) JobDescription() string { return r.jobDescription }

// HasJobDescription reports whether a non-blank job description is attached
func (r AnalysisRequest) HasJobDescription() bool {
	return r.jobDescription != ""
}

// Payload returns the JSON body sent to both analysis endpoints
func (r AnalysisRequest) Payload() AnalysisPayload {
	return AnalysisPayload{
		File:           base64.StdEncoding.EncodeToString(r.file),
		JobDescription: r.jobDescription,
	}
}

// AnalysisPayload is the wire form of an AnalysisRequest
type AnalysisPayload struct {
	File           string `json:"file" yaml:"file"`
	JobDescription string `json:"job_description,omitempty" yaml:"job_description,omitempty"`
}

// ProgressEvent reports how far the backend has got with an analysis
type ProgressEvent struct {
	Stage    Stage  `json:"stage" yaml:"stage"`
	Progress int    `json:"progress" yaml:"progress"`
	Message  string `json:"message" yaml:"message"`
}

// Validate checks the progress percentage bounds
func (p ProgressEvent) Validate() error {
	if p.Stage == "" {
		return fmt.Errorf("progress event is missing a stage")
	}
	if p.Progress < 0 || p.Progress > 100 {
		return fmt.Errorf("progress %d out of range 0-100", p.Progress)
	}
	return nil
}

// ResultMetadata describes the analyzed document
type ResultMetadata struct {
	ResumeLengthChars int  `json:"resume_length_chars" yaml:"resume_length_chars"`
	ResumeLengthWords int  `json:"resume_length_words" yaml:"resume_length_words"`
	HasJobDescription bool `json:"has_job_description" yaml:"has_job_description"`
}

// AnalysisResult is the scored analysis of a résumé
type AnalysisResult struct {
	OverallScore       int             `json:"overall_score" yaml:"overall_score"`
	SectionScores      map[string]int  `json:"section_scores" yaml:"section_scores"`
	ATSScore           int             `json:"ats_score" yaml:"ats_score"`
	ATSIssues          []string        `json:"ats_issues" yaml:"ats_issues"`
	ATSRecommendations []string        `json:"ats_recommendations" yaml:"ats_recommendations"`
	Strengths          []string        `json:"strengths" yaml:"strengths"`
	Weaknesses         []string        `json:"weaknesses" yaml:"weaknesses"`
	Recommendations    []string        `json:"recommendations" yaml:"recommendations"`
	JobMatchScore      *int            `json:"job_match_score,omitempty" yaml:"job_match_score,omitempty"`
	MissingKeywords    []string        `json:"missing_keywords,omitempty" yaml:"missing_keywords,omitempty"`
	Metadata           *ResultMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate checks that every score lies in 0-100
func (r *AnalysisResult) Validate() error {
	if err := checkScore("overall_score", r.OverallScore); err != nil {
		return err
	}
	if err := checkScore("ats_score", r.ATSScore); err != nil {
		return err
	}
	for category, score := range r.SectionScores {
		if err := checkScore("section_scores."+category, score); err != nil {
			return err
		}
	}
	if r.JobMatchScore != nil {
		if err := checkScore("job_match_score", *r.JobMatchScore); err != nil {
			return err
		}
	}
	return nil
}

// HasJobMatch reports whether the result carries job-match data
func (r *AnalysisResult) HasJobMatch() bool {
	return r.JobMatchScore != nil
}

func checkScore(field string, score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("%s %d out of range 0-100", field, score)
	}
	return nil
}

// ErrorBody is the JSON error shape returned by the analysis backend
type ErrorBody struct {
	Error   string `json:"error" yaml:"error"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Text returns the most descriptive message in the body
func (b ErrorBody) Text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

// HealthStatus is the backend health response
type HealthStatus struct {
	Status  string `json:"status" yaml:"status"`
	Service string `json:"service" yaml:"service"`
	Version string `json:"version" yaml:"version"`
}

// ChatRequest asks a follow-up question about an analysis
type ChatRequest struct {
	Message   string          `json:"message" yaml:"message"`
	SessionID string          `json:"session_id" yaml:"session_id"`
	Analysis  *AnalysisResult `json:"analysis" yaml:"analysis"`
}

// ChatResponse is the synchronous chat reply
type ChatResponse struct {
	Response  string `json:"response" yaml:"response"`
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

// ChatChunk is one data message of the chat stream
type ChatChunk struct {
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	Done  bool   `json:"done,omitempty" yaml:"done,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}
