package chron

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadTable reads a stage table from a YAML file so collaborators can adjust
// boundaries without recompiling. The file is a list of stage entries:
//
//	- name: Messinian
//	  lower: 5
//	  upper: 7
//	  midpoint: 6.0
//
// Entries are kept in file order, which fixes boundary tie-breaking.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "chron: read stage table %s", path)
	}

	var stages []Stage
	if err := yaml.Unmarshal(data, &stages); err != nil {
		return nil, eris.Wrapf(err, "chron: parse stage table %s", path)
	}

	t, err := New(stages)
	if err != nil {
		return nil, eris.Wrapf(err, "chron: invalid stage table %s", path)
	}
	return t, nil
}
