// Package core provides the table model and transformations behind the
// upload, clean and convert workflow.
//
// This package has no UI or transport dependencies. Web handlers and the
// command line tool drive it through [Service] and [ProcessBatch].
//
// # Architecture
//
// The package is organized around a few concepts:
//
//   - Table: an ordered set of named, typed columns of equal length.
//   - FileState: one uploaded file, its working table, column selection,
//     export format and history.
//   - Workspace: the files of one browser session, kept in a ttlcache.
//   - Service: the entry point for ingest, commands, chart and export.
//
// # Ingest
//
// [ParseUpload] reads .csv (UTF-8, optional BOM) and .xlsx (first sheet).
// The first row is the header. Tokens such as "", "NA" and "null" become
// missing cells; a column whose non-missing cells all parse as numbers is
// numeric:
//
//	f := core.NewUploadedFile("people.csv", data)
//	t, err := core.ParseUpload(f)
//
// # Cleaning
//
// [RemoveDuplicates] keeps the first of every run of identical rows and
// [FillMissing] replaces missing numeric cells with the column mean. In the
// web UI commands apply in the order the user issues them; batch runs always
// dedupe before filling.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages using [MapError].
// Each category has a code for support reference:
//
//   - FILE001-FILE006: File errors (size, format, malformed, empty, count)
//   - REQ001: Invalid form or JSON payload
//   - TBL001-TBL003: Table errors (unknown column, chart, command)
//   - SES001-SES005: Session errors (expired, not found, busy, timeout)
//   - RATE001: Too many requests
package core
