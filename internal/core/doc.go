// Package core runs transformation plans for the web server.
//
// It sits between the transport layer and the pipeline packages: it admits
// runs through a bounded limiter, parses the upload with [ingest], folds the
// table through the plan with the pipeline orchestrator, and keeps the
// result in a TTL-bounded store so it can be downloaded or copied into
// Postgres later.
//
// # Run Lifecycle
//
//  1. The handler decodes the plan and calls [Service.Run] with the file
//  2. Run waits for a slot in the [RunLimiter] (ErrTooManyRuns on timeout)
//  3. The file is parsed under the configured size and row limits
//  4. The orchestrator applies every enabled stage and builds a report
//  5. The [RunResult] is stored under a fresh run ID
//
// Stored results expire after SESSION_RESULT_TTL. [Service.StartReaper]
// purges them in the background; a lookup of an expired result also fails
// with ErrRunNotFound.
//
// # Exports
//
// [Service.Export] renders the final table as CSV, JSON or Parquet and caches
// the bytes on the result. [Service.SinkToPostgres] copies it into a table in
// one transaction when a database is configured.
//
// # Errors
//
// Errors returned by this package and the packages below it are technical.
// Use [MapError] to turn them into a [UserMessage] with a support code.
package core
