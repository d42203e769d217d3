package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestLoad_Defaults(t *testing.T) {
	registry, err := Load("", testLogger())
	require.NoError(t, err)

	got, ok := registry.Hematological().Apply(map[string]*string{
		FieldHemoglobinState: strptr("Low"),
		FieldWBCLevel:        strptr("Low-Low"),
	})
	require.True(t, ok)
	assert.Equal(t, "Pancytopenia", got)
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "rules.json")

	data, err := json.Marshal(tablesFile{Tables: DefaultTables()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	registry, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Len(t, registry.Names(), 3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading rules file")
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing rules file")
}

func TestLoad_FileWithConflictingRows(t *testing.T) {
	tables := DefaultTables()
	tox := tables[1]
	tox.Rows = append(tox.Rows, tox.Rows[0])

	path := filepath.Join(t.TempDir(), "rules.json")
	data, err := json.Marshal(tablesFile{Tables: tables})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err = Load(path, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share input tuple")
}
