package config

import "time"

// Timeout constants
const (
	// HTTP timeouts
	DefaultHTTPTimeout    = 60 * time.Second
	ExportHTTPTimeout     = 10 * time.Second
	ServerShutdownTimeout = 30 * time.Second
	WorkerShutdownTimeout = 30 * time.Second
	TestTimeout           = 100 * time.Millisecond

	// Database timeouts
	DatabaseConnMaxLifetime = 5 * time.Minute

	// Worker timeouts
	WorkerSweepInterval = 1 * time.Minute
	WorkerSleepDuration = 100 * time.Millisecond
	CLIWorkerTimeout    = 10 * time.Minute
)

// Batch and size constants
const (
	// How many assignments a single worker sweep may backfill
	DefaultWorkerBatchSize = 50

	// How many rows one import request may carry
	MaxImportRows = 5000
)

// Listen port defaults
const (
	DefaultServerPort = "8080"
	DefaultWorkerPort = "8081"
)

// Pagination constants
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Reporting constants
const (
	// Widest allowed window for completion timelines, in days
	DefaultCompletionRangeDays = 90
)

// Email subject defaults
const (
	DefaultInvitationSubject   = "You have a new assessment to complete"
	DefaultReportNoticeSubject = "Your report is ready"
)

// Security configuration constants
const (
	// Content Security Policy
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data:;"
)
