package stage

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tandemhq/tandem/pkg/models"
)

// junitSuite is the JUnit XML document CI systems ingest.
type junitSuite struct {
	XMLName  xml.Name    `xml:"testsuite"`
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Time     string      `xml:"time,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
}

// WriteJUnit renders verification command results as a JUnit testsuite
// file, one testcase per command, so CI dashboards can report the
// verify stage without understanding the stage artifact format.
func WriteJUnit(path, suiteName string, results []models.CommandResult, total time.Duration, failures int) error {
	suite := junitSuite{
		Name:     suiteName,
		Tests:    len(results),
		Failures: failures,
		Time:     fmt.Sprintf("%.3f", total.Seconds()),
	}
	for i, result := range results {
		tc := junitCase{
			ClassName: suiteName,
			Name:      fmt.Sprintf("%s_%d", suiteName, i+1),
			Time:      fmt.Sprintf("%.3f", float64(result.TimeMS)/1000),
		}
		if result.Status == models.StatusFailed {
			tc.Failure = &junitFailure{Message: result.Command}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("encode junit report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create junit directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write junit report: %w", err)
	}
	return nil
}
