package recommend

import (
	"sort"
	"strings"
	"time"

	"learnsprout/internal/models"
)

// DefaultForecastDays is the rolling window forecasts look ahead over
const DefaultForecastDays = 90

// ForecastInput carries everything the forecast reads
type ForecastInput struct {
	Plans      []models.WeeklyPlan
	Activities map[string]models.Activity
	Materials  []models.Material
	// Owned holds material IDs the user already has
	Owned map[string]bool
	From  time.Time
	To    time.Time
}

// ForecastItem is one material with the number of distinct planned activities needing it
type ForecastItem struct {
	MaterialID  string           `json:"materialId,omitempty"`
	Name        string           `json:"name"`
	Count       int              `json:"count"`
	Material    *models.Material `json:"material,omitempty"`
	ActivityIDs []string         `json:"activityIds"`
}

// Forecast aggregates the materials needed by plans whose week starts inside
// [From, To]. Each activity counts once however often it is scheduled.
// Household items and owned materials are dropped; the rest are ranked by
// count, then name.
func Forecast(in ForecastInput) []ForecastItem {
	byName := materialIndex(in.Materials)

	var activityIDs []string
	seenActivity := make(map[string]bool)
	for _, plan := range in.Plans {
		if !inWindow(plan.WeekStart, in.From, in.To) {
			continue
		}
		for _, id := range plan.ActivityIDs() {
			if seenActivity[id] {
				continue
			}
			seenActivity[id] = true
			activityIDs = append(activityIDs, id)
		}
	}

	items := make(map[string]*ForecastItem)
	var order []string
	for _, id := range activityIDs {
		activity, ok := in.Activities[id]
		if !ok {
			continue
		}
		counted := make(map[string]bool)
		for _, name := range activity.MaterialsNeeded {
			if strings.TrimSpace(name) == "" || IsHouseholdItem(name) {
				continue
			}

			key := models.NormalizeMaterialName(name)
			display := strings.TrimSpace(name)
			var material *models.Material
			if m := BestMaterialMatch(name, byName); m != nil {
				if IsHouseholdItem(m.Name) {
					continue
				}
				key = "id:" + m.ID
				display = m.Name
				material = m
			}
			if material != nil && in.Owned[material.ID] {
				continue
			}
			if counted[key] {
				continue
			}
			counted[key] = true

			item, ok := items[key]
			if !ok {
				item = &ForecastItem{Name: display, Material: material}
				if material != nil {
					item.MaterialID = material.ID
				}
				items[key] = item
				order = append(order, key)
			}
			item.Count++
			item.ActivityIDs = append(item.ActivityIDs, activity.ID)
		}
	}

	out := make([]ForecastItem, 0, len(order))
	for _, key := range order {
		out = append(out, *items[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// DoableActivities returns the activities whose every material is either a
// household item or a material the user owns.
func DoableActivities(activities []models.Activity, materials []models.Material, owned map[string]bool) []models.Activity {
	byName := materialIndex(materials)
	var out []models.Activity
	for _, a := range activities {
		if canDo(a, byName, owned) {
			out = append(out, a)
		}
	}
	return out
}

func canDo(a models.Activity, byName map[string]*models.Material, owned map[string]bool) bool {
	for _, name := range a.MaterialsNeeded {
		if strings.TrimSpace(name) == "" || IsHouseholdItem(name) {
			continue
		}
		m := BestMaterialMatch(name, byName)
		if m == nil || !owned[m.ID] {
			return false
		}
	}
	return true
}

// BestMaterialMatch looks a free-text material name up in the catalog index:
// an exact normalized match wins, otherwise the first catalog name that
// contains or is contained by it, tried in name order.
func BestMaterialMatch(name string, byName map[string]*models.Material) *models.Material {
	n := models.NormalizeMaterialName(name)
	if n == "" {
		return nil
	}
	if m, ok := byName[n]; ok {
		return m
	}

	keys := make([]string, 0, len(byName))
	for k := range byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, n) || strings.Contains(n, k) {
			return byName[k]
		}
	}
	return nil
}

// materialIndex keys catalog materials by normalized name
func materialIndex(materials []models.Material) map[string]*models.Material {
	out := make(map[string]*models.Material, len(materials))
	for i := range materials {
		m := &materials[i]
		key := m.NormalizedName
		if key == "" {
			key = models.NormalizeMaterialName(m.Name)
		}
		if key == "" {
			continue
		}
		if _, dup := out[key]; !dup {
			out[key] = m
		}
	}
	return out
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
