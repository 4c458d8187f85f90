package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// executeRoot runs the root command with args and returns stdout and the
// command error.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const readFileBatch = `[
  {"id": 10, "triggerId": 1, "type": "FSREQWRAP",
   "initStack": ["at Object.fs.readFile (fs.js:296:11)", "at Object.<anonymous> (/app/index.js:12:4)"],
   "init": [1000], "destroy": [1001000]},
  {"id": 11, "triggerId": 10, "type": "FSREQWRAP",
   "initStack": ["at readFileAfterOpen (fs.js:380:11)", "at FSReqWrap.oncomplete (fs.js:123:15)"],
   "init": [2000], "destroy": [1002000]},
  {"id": 12, "triggerId": 11, "type": "FSREQWRAP",
   "initStack": ["at ReadFileContext.read (fs.js:365:11)", "at readFileAfterStat (fs.js:420:11)"],
   "init": [3000], "destroy": [1003000]},
  {"id": 13, "triggerId": 12, "type": "FSREQWRAP",
   "initStack": ["at ReadFileContext.close (fs.js:375:11)", "at readFileAfterRead (fs.js:401:13)"],
   "init": [4000], "destroy": [1004000],
   "resource": {"context": {"fd": 7, "callback": {"$type": "function", "name": "onRead", "location": "/app/index.js:14:2"}}}}
]`

// writeBatch writes the readFile batch to a temp file and returns its path.
func writeBatch(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.json")
	require.NoError(t, os.WriteFile(path, []byte(readFileBatch), 0o644))
	return path
}
