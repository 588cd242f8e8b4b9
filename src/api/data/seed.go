package data

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/stake-plus/crisistruth/src/api/types"
	"github.com/stake-plus/crisistruth/src/logging"
)

//go:embed crises.yaml
var defaultCrisisTemplates []byte

type CrisisTemplate struct {
	Key          string   `yaml:"key" json:"key"`
	Title        string   `yaml:"title" json:"title"`
	Description  string   `yaml:"description" json:"description"`
	Location     string   `yaml:"location" json:"location"`
	Priority     string   `yaml:"priority" json:"priority"`
	Tags         []string `yaml:"tags" json:"tags"`
	CommonClaims []string `yaml:"common_claims" json:"commonClaims"`
}

// LoadCrisisTemplates parses path, or the built-in Mumbai templates when
// path is empty.
func LoadCrisisTemplates(path string) ([]CrisisTemplate, error) {
	raw := defaultCrisisTemplates
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read crisis templates: %w", err)
		}
		raw = b
	}

	var doc struct {
		Templates []CrisisTemplate `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse crisis templates: %w", err)
	}
	for i, t := range doc.Templates {
		if t.Title == "" || t.Location == "" {
			return nil, fmt.Errorf("crisis template %d: title and location are required", i)
		}
	}
	return doc.Templates, nil
}

// SeedCrises inserts templates when the crises table is empty.
func SeedCrises(ctx context.Context, db *gorm.DB, templates []CrisisTemplate) error {
	var n int64
	if err := db.WithContext(ctx).Model(&types.Crisis{}).Count(&n).Error; err != nil {
		return fmt.Errorf("seed crises: %w", err)
	}
	if n > 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range templates {
			c := types.Crisis{
				Title:       t.Title,
				Description: t.Description,
				Location:    t.Location,
				Priority:    t.Priority,
				Status:      "active",
			}
			for _, tag := range t.Tags {
				c.Tags = append(c.Tags, types.CrisisTag{Tag: tag})
			}
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("seed crisis %q: %w", t.Title, err)
			}
		}
		logging.Logger.Info("seeded crises", "count", len(templates))
		return nil
	})
}
