package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataprep/internal/core"
)

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"plain", "people.xlsx", "2026/03/07/sess/file/people.xlsx"},
		{"strips directories", "../../etc/people.csv", "2026/03/07/sess/file/people.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(at, "sess", "file", tt.fileName))
		})
	}
}

func TestArchiveExport(t *testing.T) {
	var gotKey, gotType string
	var gotData []byte
	a := newArchiver(func(ctx context.Context, key string, data []byte, contentType string) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		gotKey, gotData, gotType = key, data, contentType
		return nil
	}, "exports", time.Second)
	a.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	res := &core.ExportResult{
		Data:     []byte("Name,Age\nA,1\n"),
		FileName: "people.csv",
		MIMEType: core.MimeCSV,
		Format:   core.FormatCSV,
	}
	key, err := a.ArchiveExport(context.Background(), "s1", "f1", res)
	require.NoError(t, err)

	assert.Equal(t, "2026/01/02/s1/f1/people.csv", key)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, res.Data, gotData)
	assert.Equal(t, core.MimeCSV, gotType)
}

func TestArchiveExport_Error(t *testing.T) {
	boom := errors.New("access denied")
	a := newArchiver(func(context.Context, string, []byte, string) error { return boom }, "exports", 0)

	_, err := a.ArchiveExport(context.Background(), "s", "f", &core.ExportResult{FileName: "x.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "exports/")
}
