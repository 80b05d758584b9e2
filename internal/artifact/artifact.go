package artifact

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Record is the persisted subset of a provisioned device. The file
// holding these records is the only handoff between provisioning and
// replaying.
type Record struct {
	ID     uint   `json:"id"`
	UID    string `json:"uid"`
	Serial string `json:"serial"`
}

// ErrNoRecords is returned when the artifact file holds an empty list.
var ErrNoRecords = errors.New("the artifact file contains no device records")

// Save writes the records to path as an indented JSON array,
// overwriting any previous file.
func Save(fs afero.Fs, path string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode the device records")
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return errors.Wrapf(err, "could not write the artifact file %s", path)
	}

	return nil
}

// Load reads the records back from path. A missing, unreadable or
// empty file is an error: replaying without devices is meaningless.
func Load(fs afero.Fs, path string) ([]Record, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read the artifact file %s", path)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapf(err, "could not decode the artifact file %s", path)
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	return records, nil
}
