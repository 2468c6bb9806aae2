package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Items []Record `yaml:"items"`
}

// Parse reads a YAML document of the form `items: [{item_id, stock, low_stock_threshold}]`.
func Parse(data []byte) (Snapshot, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Snapshot{}, fmt.Errorf("decode inventory seed: %w", err)
	}
	return NewSnapshot(seed.Items...)
}

// LoadFile parses the seed file at path.
func LoadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read inventory seed %q: %w", path, err)
	}
	return Parse(data)
}

// Simulated is the default bakery stock used when no seed file is configured.
func Simulated() Snapshot {
	snap, err := NewSnapshot(
		Record{ItemID: "croissant", Stock: 24, LowStockThreshold: 5},
		Record{ItemID: "baguette", Stock: 12, LowStockThreshold: 3},
		Record{ItemID: "pain-au-chocolat", Stock: 18, LowStockThreshold: 4},
		Record{ItemID: "sourdough-loaf", Stock: 6, LowStockThreshold: 2},
		Record{ItemID: "cinnamon-roll", Stock: 4, LowStockThreshold: 5},
		Record{ItemID: "blueberry-muffin", Stock: 15, LowStockThreshold: 4},
		Record{ItemID: "macaron-box", Stock: 0, LowStockThreshold: 2},
		Record{ItemID: "celebration-cake", Stock: 2, LowStockThreshold: 1},
	)
	if err != nil {
		panic(err)
	}
	return snap
}
