package common

import (
	"encoding/json"
	"io"
	"os"
)

// CIResult is the single JSON document a command prints under --ci.
type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func NewCIResult(title string, details []string, err error) CIResult {
	res := CIResult{OK: err == nil, Title: title, Details: details}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func (r CIResult) WriteTo(w io.Writer) (int64, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return 0, err
	}
	n, err := w.Write(append(b, '\n'))
	return int64(n), err
}

// PrintCIResult writes the result to stdout. ok=false with a nil err still
// reports failure.
func PrintCIResult(ok bool, title string, details []string, err error) {
	res := NewCIResult(title, details, err)
	res.OK = ok && err == nil
	_, _ = res.WriteTo(os.Stdout)
}
