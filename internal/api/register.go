package api

import (
	"fmt"

	"github.com/danmuck/dectmail/internal/protocol/catalog"
)

func families() [][]catalog.Entry {
	return [][]catalog.Entry{
		generalEntries(),
		fpmmEntries(),
		ppmmEntries(),
		prodTestEntries(),
		imageEntries(),
		halEntries(),
	}
}

// Register adds every family to c.
func Register(c *catalog.Catalog) error {
	for _, entries := range families() {
		if err := c.Register(entries...); err != nil {
			return fmt.Errorf("api: register: %w", err)
		}
	}
	return nil
}

// NewCatalog returns a sealed catalog holding every family.
func NewCatalog() (*catalog.Catalog, error) {
	c := catalog.New()
	if err := Register(c); err != nil {
		return nil, err
	}
	c.Seal()
	return c, nil
}
