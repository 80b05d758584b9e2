package artifact

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	records := []Record{
		{ID: 1, UID: "aaaa-bbbb", Serial: "LOADTEST0000"},
		{ID: 2, UID: "cccc-dddd", Serial: "LOADTEST0001"},
	}

	err := Save(fs, "devices.json", records)
	require.NoError(t, err)

	loaded, err := Load(fs, "devices.json")
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestSaveWritesIndentedJSON(t *testing.T) {
	fs := afero.NewMemMapFs()

	err := Save(fs, "devices.json", []Record{{ID: 7, UID: "uid-7", Serial: "LOADTEST0007"}})
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "devices.json")
	require.NoError(t, err)

	expected := `[
  {
    "id": 7,
    "uid": "uid-7",
    "serial": "LOADTEST0007"
  }
]`
	assert.Equal(t, expected, string(data))
}

func TestSaveOverwritesExistingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, Save(fs, "devices.json", []Record{
		{ID: 1, UID: "old-1", Serial: "LOADTEST0000"},
		{ID: 2, UID: "old-2", Serial: "LOADTEST0001"},
	}))
	require.NoError(t, Save(fs, "devices.json", []Record{
		{ID: 3, UID: "new-3", Serial: "LOADTEST0000"},
	}))

	loaded, err := Load(fs, "devices.json")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "new-3", loaded[0].UID)
}

func TestLoadMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(fs, "devices.json")
	assert.Error(t, err)
}

func TestLoadInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "devices.json", []byte("not json"), 0644))

	_, err := Load(fs, "devices.json")
	assert.Error(t, err)
}

func TestLoadEmptyList(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "devices.json", []byte("[]"), 0644))

	_, err := Load(fs, "devices.json")
	assert.True(t, errors.Is(err, ErrNoRecords))
}
