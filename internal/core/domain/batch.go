package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// BatchStatus is the remote processing state of a batch
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusPreprocess BatchStatus = "preprocessing"
	BatchStatusStarted    BatchStatus = "started"
	BatchStatusFinalizing BatchStatus = "finalizing"
	BatchStatusFinished   BatchStatus = "finished"
)

// Batch is a submitted group of operations as reported by the remote system
type Batch struct {
	ID                 string      `json:"id"`
	Status             BatchStatus `json:"status"`
	TotalOperations    int         `json:"total_operations"`
	FinishedOperations int         `json:"finished_operations"`
	ErroredOperations  int         `json:"errored_operations"`
	SubmittedAt        *time.Time  `json:"submitted_at,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	ResponseBodyURL    string      `json:"response_body_url,omitempty"`
}

// IsFinished returns true once the remote system has processed every operation
func (b *Batch) IsFinished() bool {
	return b != nil && b.Status == BatchStatusFinished
}

// OperationResult is the outcome of one operation, read from the batch results archive
type OperationResult struct {
	OperationID string `json:"operation_id"`
	StatusCode  int    `json:"status_code"`
	Response    string `json:"response"`
}

// Failed returns true for any result other than 200 OK
func (r OperationResult) Failed() bool {
	return r.StatusCode != http.StatusOK
}

// RemoteError decodes the error detail embedded in a failed result
func (r OperationResult) RemoteError() *RemoteError {
	var remote RemoteError
	if err := json.Unmarshal([]byte(r.Response), &remote); err != nil {
		remote.Detail = strings.TrimSpace(r.Response)
	}
	if remote.Status == 0 {
		remote.Status = r.StatusCode
	}
	return &remote
}

// FieldError is a field level validation error reported by the remote system
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RemoteError is the problem document returned by the remote API
type RemoteError struct {
	Type     string       `json:"type,omitempty"`
	Title    string       `json:"title,omitempty"`
	Status   int          `json:"status,omitempty"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

func (e *RemoteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s - %s", e.Status, e.Title, e.Detail)
	if len(e.Errors) > 0 {
		b.WriteString(" Errors: ")
		for i, fe := range e.Errors {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s - %s", fe.Field, fe.Message)
		}
	}
	return b.String()
}

// BatchCompletion is the result of handling a batch completion notification
type BatchCompletion struct {
	BatchID             string `json:"batch_id"`
	CompletedOperations int    `json:"completed_operations"`
	ErroredOperations   int    `json:"errored_operations"`

	// Replayed is set when the batch had already been handled
	Replayed bool `json:"replayed"`
}

// DispatchResult summarizes a submitted set of operations
type DispatchResult struct {
	Operations int      `json:"operations"`
	BatchIDs   []string `json:"batch_ids"`
}
