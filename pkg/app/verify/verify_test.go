package verify

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-ups/internal/testutil"
	"github.com/deploymenttheory/go-ups/pkg/app"
)

func TestHandle(t *testing.T) {
	dir := t.TempDir()
	source := []byte("FIRE RED v1.0")
	target := []byte("FIRE RED v1.1 revised")
	patchPath := testutil.WriteFile(t, dir, "fix.ups", testutil.BuildPatch(source, target))

	tests := []struct {
		name   string
		data   []byte
		status Status
		reason string
	}{
		{"original source", source, StatusMatches, ""},
		{"patched file", target, StatusAlreadyPatched, "file already matches the patch target"},
		{"wrong revision", []byte("FIRE RED v0.9"), StatusMismatch, "source checksum does not match patch"},
		{"wrong size", []byte("LEAF GREEN"), StatusMismatch, "source size 10 does not match patch (want 13)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := testutil.WriteFile(t, t.TempDir(), "rom.gba", tt.data)
			ctx := app.NewContext()
			ctx.Quiet = true

			resp, err := Handle(ctx, &Request{PatchPath: patchPath, SourcePath: path})
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.reason, resp.Reason)
			assert.Equal(t, len(tt.data), resp.SourceSize)
		})
	}
}

func TestHandle_PatchInArchive(t *testing.T) {
	dir := t.TempDir()
	source := []byte("base image")
	archive := testutil.WriteFile(t, dir, "fix.zip", testutil.BuildZip(t,
		testutil.ZipEntry{Name: "fix/"},
		testutil.ZipEntry{Name: "fix/fix.ups", Data: testutil.BuildPatch(source, []byte("base IMAGE"))},
	))
	sourcePath := testutil.WriteFile(t, dir, "base.img", source)

	ctx := app.NewContext()
	ctx.Quiet = true
	resp, err := Handle(ctx, &Request{PatchPath: archive, PatchEntry: "fix.ups", StripParentDir: true, SourcePath: sourcePath})
	require.NoError(t, err)
	assert.Equal(t, StatusMatches, resp.Status)
	assert.Equal(t, archive+":fix.ups", resp.Patch.Path)
}

func TestHandle_Errors(t *testing.T) {
	dir := t.TempDir()
	patchPath := testutil.WriteFile(t, dir, "fix.ups", testutil.BuildPatch([]byte("a"), []byte("b")))

	tests := []struct {
		name    string
		request *Request
		errCode string
	}{
		{"missing patch path", &Request{SourcePath: "rom.gba"}, app.ErrCodeInvalidInput},
		{"missing source path", &Request{PatchPath: patchPath}, app.ErrCodeInvalidInput},
		{"unreadable source", &Request{PatchPath: patchPath, SourcePath: filepath.Join(dir, "nope")}, app.ErrCodeFileAccess},
		{"unreadable patch", &Request{PatchPath: filepath.Join(dir, "nope.ups"), SourcePath: patchPath}, app.ErrCodeFileAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Handle(app.NewContext(), tt.request)
			assert.Nil(t, resp)
			assert.Equal(t, tt.errCode, app.ErrorCode(err))
		})
	}
}

func TestFormatOutput(t *testing.T) {
	resp := &Response{
		Patch:       app.PatchInfo{SourceSize: 13, SourceCRC32: "0badf00d"},
		Source:      "rom.gba",
		SourceSize:  10,
		SourceCRC32: "12345678",
		Status:      StatusMismatch,
		Reason:      "source size 10 does not match patch (want 13)",
	}

	var buf bytes.Buffer
	require.NoError(t, FormatOutput(&buf, resp, "table"))
	assert.Contains(t, buf.String(), "Status: mismatch")
	assert.Contains(t, buf.String(), "Reason: source size 10")

	buf.Reset()
	require.NoError(t, FormatOutput(&buf, resp, "json"))
	assert.Contains(t, buf.String(), `"status": "mismatch"`)

	buf.Reset()
	require.NoError(t, FormatOutput(&buf, resp, "yaml"))
	assert.Contains(t, buf.String(), "status: mismatch")
}
