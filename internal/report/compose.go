package report

import (
	"strings"

	"github.com/jonathan/pipeline-observer/internal/artifacts"
	"github.com/jonathan/pipeline-observer/internal/executions"
	"github.com/jonathan/pipeline-observer/internal/jobs"
)

// Report is everything rendered into one execution report.
type Report struct {
	Pipeline  string
	ExecID    string
	State     string
	Revision  executions.Revision
	Records   []jobs.Record
	Artifacts artifacts.Results
}

// Compose renders the report body. Lines end in CRLF.
func Compose(r Report) string {
	var sb strings.Builder
	sb.WriteString(r.State + ": " + SourceString(r.Revision.ID, r.Revision.Summary, r.Revision.URL))
	sb.WriteString(crlf + crlf)

	sb.WriteString(FormatStages(r.Records))

	writeSection(&sb, "Lint:", r.Artifacts.Lint.Text())
	writeSection(&sb, "Tests:", r.Artifacts.Tests.Text())
	writeSection(&sb, "Coverage:", r.Artifacts.Coverage.Text())
	return sb.String()
}

func writeSection(sb *strings.Builder, title, body string) {
	sb.WriteString(crlf + title + crlf)
	sb.WriteString(crlf + body + crlf)
}
