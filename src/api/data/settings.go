package data

import (
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/crisistruth/src/api/types"
)

var (
	settingsCache map[string]string
	settingsMu    sync.RWMutex
)

// LoadSettings loads all settings from database into cache
func LoadSettings(db *gorm.DB) error {
	var settings []types.Setting
	if err := db.Find(&settings).Error; err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()

	settingsCache = make(map[string]string, len(settings))
	for _, s := range settings {
		settingsCache[s.Name] = s.Value
	}
	return nil
}

// GetSetting retrieves a cached setting value by name
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}

// SetSetting stores a setting and refreshes the cache entry.
func SetSetting(db *gorm.DB, name, value string) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&types.Setting{Name: name, Value: value}).Error
	if err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()
	if settingsCache == nil {
		settingsCache = make(map[string]string)
	}
	settingsCache[name] = value
	return nil
}
