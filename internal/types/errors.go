package types

import (
	"errors"
	"fmt"
	"time"
)

type ErrorCategory string

const (
	ErrNetwork       ErrorCategory = "network"
	ErrTimeout       ErrorCategory = "timeout"
	ErrLoginRequired ErrorCategory = "login-required"
	ErrBotProtection ErrorCategory = "bot-protection"
	ErrPageNotFound  ErrorCategory = "page-not-found"
	ErrExtraction    ErrorCategory = "extraction"
	ErrLLM           ErrorCategory = "llm"
	ErrVault         ErrorCategory = "vault"
	ErrUnknown       ErrorCategory = "unknown"
)

// CancelledMessage is the error text of a URL stopped by batch cancellation.
const CancelledMessage = "Cancelled"

type SuggestedAction string

const (
	ActionRetry    SuggestedAction = "retry"
	ActionOpen     SuggestedAction = "open"
	ActionSkip     SuggestedAction = "skip"
	ActionSettings SuggestedAction = "settings"
)

// ErrorMetadata is what a UI needs to render a failure and its remedy.
type ErrorMetadata struct {
	Category         ErrorCategory   `json:"category"`
	TechnicalDetails string          `json:"technical_details"`
	IsRetryable      bool            `json:"is_retryable"`
	SuggestedAction  SuggestedAction `json:"suggested_action"`
	Message          string          `json:"message"`
	Timestamp        time.Time       `json:"timestamp"`
	RetryCount       *int            `json:"retry_count,omitempty"`
}

func (m ErrorMetadata) WithRetryCount(n int) ErrorMetadata {
	m.RetryCount = &n
	return m
}

// HTTPError is a non-success response while fetching a page.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// VaultError is a failed note store call. StatusCode is zero when the
// request never produced an HTTP response.
type VaultError struct {
	StatusCode int
	Endpoint   string
	Err        error
}

func (e *VaultError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("vault %s: %v", e.Endpoint, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("vault %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("vault %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

func IsVaultNotFound(err error) bool {
	var ve *VaultError
	return errors.As(err, &ve) && ve.StatusCode == 404
}

type ProcessingStage string

const (
	StageSummarization  ProcessingStage = "summarization"
	StageCategorization ProcessingStage = "categorization"
)

// ProcessingError is returned by an AI provider.
type ProcessingError struct {
	Stage ProcessingStage
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func NewProcessingError(stage ProcessingStage, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Err: err}
}

func IsProcessingError(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}
