// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AttemptStatus tags the outcome of one download attempt in the batch log.
type AttemptStatus string

const (
	StatusSuccess AttemptStatus = "success"
	StatusFailed  AttemptStatus = "failed"
	StatusError   AttemptStatus = "error"
)

// DownloadRecord is one entry in the per-batch JSON log. Records are
// appended in processing order, one per attempted citation.
type DownloadRecord struct {
	// Status is success, failed, or error.
	Status AttemptStatus `json:"status"`

	// Citation is the raw bibliographic string that was searched.
	Citation string `json:"citation"`

	// Ordinal is the citation's sequence number within the batch.
	// Present on success records.
	Ordinal int `json:"index,omitempty"`

	// Reason explains a failed attempt (no PDF found, challenge page).
	Reason string `json:"reason,omitempty"`

	// Error carries the message of an unexpected interaction failure.
	Error string `json:"error,omitempty"`
}

// DownloadMeta is the YAML sidecar written next to a reconciled PDF.
type DownloadMeta struct {
	// Citation is the bibliographic string the download was matched to.
	Citation string `json:"citation" yaml:"citation"`

	// Ordinal is the citation's sequence number within the batch.
	Ordinal int `json:"ordinal" yaml:"ordinal"`

	// Filename is the canonical name the PDF was renamed to.
	Filename string `json:"filename" yaml:"filename"`

	// SourceURL is the link that triggered the download.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// Downloaded is the time the file was reconciled.
	Downloaded time.Time `json:"downloaded" yaml:"downloaded"`
}
