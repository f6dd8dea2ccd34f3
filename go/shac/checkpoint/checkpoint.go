// Package checkpoint implements the SHAC on-disk layout (spec.md
// section 6): a directory holding dataset.csv, parameters.json,
// classifiers/cls_<i>.bin, and meta.json, written atomically (temp
// directory then rename) at the end of every epoch.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/muchq/shac/go/shac/classifier"
	"github.com/muchq/shac/go/shac/dataset"
	"github.com/muchq/shac/go/shac/param"
	"github.com/muchq/shac/go/shac/shacerr"
)

// EngineVersion is stamped into every checkpoint's meta.json.
const EngineVersion = "1.0"

// Flags mirrors the engine's boolean configuration options.
type Flags struct {
	SkipCVChecks bool `json:"skip_cv_checks"`
	EarlyStop    bool `json:"early_stop"`
	RelaxChecks  bool `json:"relax_checks"`
}

// Meta is the contents of meta.json.
type Meta struct {
	EngineVersion  string `json:"engine_version"`
	RunID          string `json:"run_id"`
	Epoch          int    `json:"epoch"`
	Objective      string `json:"objective"`
	TotalBudget    int    `json:"total_budget"`
	NumBatches     int    `json:"num_batches"`
	MaxClassifiers int    `json:"max_classifiers"`
	CascadeLen     int    `json:"cascade_len"`
	Seed           int64  `json:"seed"`
	Flags          Flags  `json:"flags"`
}

const classifiersDirName = "classifiers"

func classifierFileName(i, width int) string {
	return filepath.Join(classifiersDirName, fmt.Sprintf("cls_%0*d.bin", width, i))
}

func digitWidth(n int) int {
	width := 1
	for n >= 10 {
		n /= 10
		width++
	}
	if width < 2 {
		width = 2
	}
	return width
}

// Save writes a complete checkpoint to dir: build the new state in a
// temp sibling directory, then rename it over dir, so a reader never
// observes a partially-written checkpoint (spec.md section 6's
// atomicity requirement, and section 7's PersistenceFailed policy:
// "previous good checkpoint remains on disk" on failure).
func Save(dir string, meta Meta, space *param.Space, ds *dataset.Dataset, cascade []classifier.Classifier) error {
	meta.EngineVersion = EngineVersion
	meta.CascadeLen = len(cascade)

	tmp := dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "clearing previous temp checkpoint dir", err)
	}
	if err := os.MkdirAll(filepath.Join(tmp, classifiersDirName), 0755); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "creating temp checkpoint dir", err)
	}

	if err := writeJSON(filepath.Join(tmp, "meta.json"), meta); err != nil {
		return err
	}

	schemaData, err := json.MarshalIndent(space, "", "  ")
	if err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "marshaling parameter schema", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "parameters.json"), schemaData, 0644); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "writing parameters.json", err)
	}

	dsFile, err := os.Create(filepath.Join(tmp, "dataset.csv"))
	if err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "creating dataset.csv", err)
	}
	if err := ds.WriteCSV(dsFile); err != nil {
		dsFile.Close()
		return shacerr.Wrap(shacerr.PersistenceFailed, "writing dataset.csv", err)
	}
	if err := dsFile.Close(); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "closing dataset.csv", err)
	}

	width := digitWidth(len(cascade))
	for i, cls := range cascade {
		data, err := cls.Serialize()
		if err != nil {
			return shacerr.Wrap(shacerr.PersistenceFailed, fmt.Sprintf("serializing classifier %d", i), err)
		}
		if err := os.WriteFile(filepath.Join(tmp, classifierFileName(i, width)), data, 0644); err != nil {
			return shacerr.Wrap(shacerr.PersistenceFailed, fmt.Sprintf("writing classifier %d", i), err)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "clearing previous checkpoint dir", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "renaming temp checkpoint into place", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "marshaling "+filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return shacerr.Wrap(shacerr.PersistenceFailed, "writing "+filepath.Base(path), err)
	}
	return nil
}

// Loaded bundles everything Load reconstructs from a checkpoint directory.
type Loaded struct {
	Meta    Meta
	Space   *param.Space
	Dataset *dataset.Dataset
	Cascade []classifier.Classifier
}

// Load restores a checkpoint. It succeeds only if meta.json parses and
// every classifier file it references exists (spec.md section 6); any
// other inconsistency (unparseable meta.json, a dataset.csv that
// conflicts with the schema) is reported as SchemaMismatch, which the
// caller treats as fatal.
func Load(dir string) (*Loaded, error) {
	metaData, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return nil, shacerr.Wrap(shacerr.SchemaMismatch, "reading meta.json", err)
	}
	var meta Meta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, shacerr.Wrap(shacerr.SchemaMismatch, "parsing meta.json", err)
	}

	schemaData, err := os.ReadFile(filepath.Join(dir, "parameters.json"))
	if err != nil {
		return nil, shacerr.Wrap(shacerr.SchemaMismatch, "reading parameters.json", err)
	}
	var space param.Space
	if err := json.Unmarshal(schemaData, &space); err != nil {
		return nil, shacerr.Wrap(shacerr.SchemaMismatch, "parsing parameters.json", err)
	}

	dsFile, err := os.Open(filepath.Join(dir, "dataset.csv"))
	if err != nil {
		return nil, shacerr.Wrap(shacerr.SchemaMismatch, "reading dataset.csv", err)
	}
	defer dsFile.Close()
	ds, err := dataset.ReadCSV(dsFile, &space)
	if err != nil {
		return nil, shacerr.Wrap(shacerr.SchemaMismatch, "dataset.csv conflicts with parameter schema", err)
	}

	width := digitWidth(meta.CascadeLen)
	cascade := make([]classifier.Classifier, meta.CascadeLen)
	for i := 0; i < meta.CascadeLen; i++ {
		path := filepath.Join(dir, classifierFileName(i, width))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, shacerr.Wrap(shacerr.SchemaMismatch, fmt.Sprintf("missing classifier file for cascade index %d", i), err)
		}
		cls, err := classifier.DeserializeTreeEnsemble(data)
		if err != nil {
			return nil, shacerr.Wrap(shacerr.SchemaMismatch, fmt.Sprintf("deserializing classifier %d", i), err)
		}
		cascade[i] = cls
	}

	return &Loaded{Meta: meta, Space: &space, Dataset: ds, Cascade: cascade}, nil
}

// Exists reports whether dir looks like a checkpoint directory (has a
// meta.json), used by the engine to distinguish "restore" from "fresh start".
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "meta.json"))
	return err == nil
}
