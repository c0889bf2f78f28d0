// Package persist reads and writes the compiled-function-set CSVs that
// make re-running a pass over a module idempotent and let the standalone
// globals propagator tell which externally-compiled functions already
// carry hardening.
//
// No third-party CSV library appears anywhere in the retrieval corpus, so
// this package uses the standard library's encoding/csv directly: there is
// nothing in the corpus to ground a dependency choice on, and the format
// (one header row, one symbol-name column) is exactly what encoding/csv is
// for.
package persist

import (
	"encoding/csv"
	"os"
	"path/filepath"
)

// Kind names one of the three persisted compiled-function sets.
type Kind string

const (
	EDDISet   Kind = "compiled_eddi_functions.csv"
	RASMSet   Kind = "compiled_rasm_functions.csv"
	RACFEDSet Kind = "compiled_racfed_functions.csv"
)

const header = "fn_name"

// Load reads the named set from dir, returning an empty (not nil) slice
// if the file does not yet exist.
func Load(dir string, k Kind) ([]string, error) {
	path := filepath.Join(dir, string(k))
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) == 1 && row[0] == header {
			continue
		}
		if len(row) == 0 {
			continue
		}
		names = append(names, row[0])
	}
	return names, nil
}

// Save writes names to the named set under dir, overwriting any existing
// file, with the fixed header row.
func Save(dir string, k Kind, names []string) error {
	path := filepath.Join(dir, string(k))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{header}); err != nil {
		return err
	}
	for _, n := range names {
		if err := w.Write([]string{n}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Contains reports whether name is present in the loaded set.
func Contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
