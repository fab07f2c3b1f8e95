package mapmodel

import (
	"encoding/json"
	"os"
)

// LoadMapFile reads and decodes a pretty-printed MapData JSON file.
func LoadMapFile(path string) (MapData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MapData{}, err
	}
	return DecodeMapData(data)
}

// SaveMapFile pretty-prints m and writes it to path.
func SaveMapFile(path string, m MapData) error {
	w := toWireMapData(m)
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadPathsFile reads and decodes a pretty-printed PathCollection JSON file.
func LoadPathsFile(path string) (PathCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PathCollection{}, err
	}
	return DecodePathCollection(data)
}

// SavePathsFile pretty-prints c and writes it to path.
func SavePathsFile(path string, c PathCollection) error {
	data, err := EncodePathCollection(c)
	if err != nil {
		return err
	}
	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err != nil {
		return err
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
