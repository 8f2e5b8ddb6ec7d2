package mandate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiagnosticsSuffix names the artifact written after a failed build.
const DiagnosticsSuffix = ".buildfailure.log"

// DiagnosticsPath returns the artifact path for a mandate.
func DiagnosticsPath(dir, name string) string {
	return filepath.Join(dir, name+DiagnosticsSuffix)
}

func writeDiagnostics(path, name string, at time.Time, cause error, lines []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Build of mandate %q failed at %s\n\n", name, at.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Error: %v\n", cause)
	if len(lines) > 0 {
		b.WriteString("\nBuild log:\n")
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func removeDiagnostics(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
