package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/naka-gawa/trustgraph/internal/domain"
)

// Line prefixes written by the probe program. ParseOutput depends on them.
const (
	verifiedPrefix = "VERIFIED:"
	commitsPrefix  = "COMMITS:"
	errorPrefix    = "ERROR:"
	verifiedTrue   = verifiedPrefix + " True"
)

// Output formats understood by WriteReport and ParseOutput.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnrecognizedOutput is returned when the output carries neither a verdict line nor a JSON report.
var ErrUnrecognizedOutput = errors.New("probe output has no verdict")

// Report is the JSON line form of the probe output.
type Report struct {
	Verified    *bool  `json:"verified,omitempty"`
	CommitCount *int   `json:"commit_count,omitempty"`
	Error       string `json:"error,omitempty"`
}

// WriteReport prints the outcome, or the error when err is non-nil, in the given format.
func WriteReport(w io.Writer, format string, outcome domain.ProbeOutcome, err error) error {
	if format == FormatJSON {
		var r Report
		if err != nil {
			r.Error = err.Error()
		} else {
			r.Verified = &outcome.Verified
			r.CommitCount = &outcome.CommitCount
		}
		return json.NewEncoder(w).Encode(r)
	}

	if err != nil {
		_, werr := fmt.Fprintf(w, "%s %s\n", errorPrefix, err)
		return werr
	}
	_, werr := fmt.Fprintf(w, "%s %s\n%s %d\n", verifiedPrefix, verdictWord(outcome.Verified), commitsPrefix, outcome.CommitCount)
	return werr
}

// ParseOutput reads the standard output of the probe program. A JSON report
// line wins over the prefixed text lines. In text form the outcome is verified
// only when "VERIFIED: True" appears, and the first "COMMITS:" line gives the
// count (0 when absent or malformed).
func ParseOutput(out string) (domain.ProbeOutcome, error) {
	lines := strings.Split(out, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var r Report
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			continue
		}
		if r.Error != "" {
			return domain.ProbeOutcome{}, fmt.Errorf("probe reported: %s", r.Error)
		}
		if r.Verified == nil {
			continue
		}
		outcome := domain.ProbeOutcome{Verified: *r.Verified}
		if r.CommitCount != nil && *r.CommitCount > 0 {
			outcome.CommitCount = *r.CommitCount
		}
		return outcome, nil
	}

	hasVerdict := false
	reported := ""
	for _, line := range lines {
		if strings.Contains(line, verifiedPrefix) {
			hasVerdict = true
		}
		if i := strings.Index(line, errorPrefix); i >= 0 && reported == "" {
			reported = strings.TrimSpace(line[i+len(errorPrefix):])
		}
	}
	// An ERROR line only counts when there is no verdict.
	if !hasVerdict {
		if reported != "" {
			return domain.ProbeOutcome{}, fmt.Errorf("probe reported: %s", reported)
		}
		return domain.ProbeOutcome{}, ErrUnrecognizedOutput
	}

	outcome := domain.ProbeOutcome{Verified: strings.Contains(out, verifiedTrue)}
	for _, line := range lines {
		i := strings.Index(line, commitsPrefix)
		if i < 0 {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(line[i+len(commitsPrefix):])); err == nil && n > 0 {
			outcome.CommitCount = n
		}
		break
	}
	return outcome, nil
}

func verdictWord(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
