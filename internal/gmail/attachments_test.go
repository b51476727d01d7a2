package gmail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"invoice.pdf":             "invoice.pdf",
		"scans/invoice.pdf":       "scans_invoice.pdf",
		`scans\invoice.pdf`:       "scans_invoice.pdf",
		"../../../etc/passwd":     "______etc_passwd",
		`..\scans/invoice.pdf`:    "__scans_invoice.pdf",
		"report..final.txt":       "report_final.txt",
		"nul\x00byte.txt":         "nulbyte.txt",
		"":                        "attachment",
		".":                       "attachment",
		"  ":                      "attachment",
		"Q3 results (draft).xlsx": "Q3 results (draft).xlsx",
	}

	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "SanitizeFilename(%q)", in)
	}
}

func TestGetAttachment_RequiresIDs(t *testing.T) {
	auth := &fakeAuth{}
	c := newTestClient(t, newFakeGmail(t), auth)

	_, err := c.GetAttachment(context.Background(), "", "att-1")
	require.EqualError(t, err, "message id is required")

	_, err = c.GetAttachment(context.Background(), "msg-1", "")
	require.EqualError(t, err, "attachment id is required")

	assert.Zero(t, auth.calls.Load(), "no token check before validation")
}
