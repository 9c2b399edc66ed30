package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// WriteLog writes captured log entries one per line:
// timestamp, level, message and the entry's fields sorted by name.
func WriteLog(w io.Writer, entries []*log.Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		fmt.Fprintf(bw, "%s %-5s %s", e.Timestamp.Format(time.RFC3339), strings.ToUpper(e.Level.String()), e.Message)

		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(bw, " %s=%v", name, e.Fields[name])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
