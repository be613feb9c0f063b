// Package templates holds the HTML components of the web UI.
//
// Components are written in templ (*.templ) and compiled to *_templ.go with
// `templ generate`; handlers render them the same way whether they produce a
// full page or an HTMX fragment.
package templates

import (
	"fmt"
	"slices"

	"github.com/JonMunkholm/dataprep/internal/core"
)

// UploadResult is one line of the upload outcome list.
type UploadResult struct {
	Name    string
	FileID  string
	Status  core.FileStatus
	Message string
	Code    string
}

// PageData is everything the index page shows.
type PageData struct {
	Files       []core.FileView
	Results     []UploadResult
	MaxFileSize int64
	Summary     Summary
}

// Summary counts what happened in the session so far.
type Summary struct {
	Files      int
	Operations int
	Exports    int
}

var exportFormats = []core.Format{core.FormatCSV, core.FormatExcel}

// PanelID is the DOM id of a file panel.
func PanelID(fileID string) string { return "file-" + fileID }

// fileURL is the path of a file resource, or of one of its actions.
func fileURL(fileID, action string) string {
	if action == "" {
		return "/files/" + fileID
	}
	return "/files/" + fileID + "/" + action
}

// columnSelected reports whether the multiselect marks c. While every column
// is kept the default pick is suggested instead.
func columnSelected(v core.FileView, c core.ColumnInfo) bool {
	if v.AllSelected {
		return slices.Contains(v.DefaultPick, c.Name)
	}
	return c.Selected
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.0f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
