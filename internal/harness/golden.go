package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Snapshot renders a result as the golden file format: one JSON line
// per trace event, a blank line, then the final canonical document.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# trace\n")
	for _, te := range result.Trace {
		line, err := json.Marshal(te)
		if err != nil {
			return nil, fmt.Errorf("marshal trace event: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteString("\n# document\n")
	buf.Write(result.Document)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
