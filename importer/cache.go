package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// entityCache guarantees at most one remote create per distinct key per
// run. Concurrent misses on the same key coalesce through singleflight
// instead of serializing every lookup behind one coarse lock, and only
// successful resolutions are cached so a transient error can be retried
// by a later record.
type entityCache struct {
	group singleflight.Group

	mu  sync.Mutex
	ids map[string]int
}

func newEntityCache() *entityCache {
	return &entityCache{ids: make(map[string]int)}
}

func (c *entityCache) getOrCreate(key string, resolve func() (int, error)) (int, error) {
	c.mu.Lock()
	if id, ok := c.ids[key]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if id, ok := c.ids[key]; ok {
			c.mu.Unlock()
			return id, nil
		}
		c.mu.Unlock()

		id, err := resolve()
		if err != nil {
			return 0, err
		}
		c.mu.Lock()
		c.ids[key] = id
		c.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

type entityCaches struct {
	manufacturers *entityCache
	features      *entityCache
	featureValues *entityCache
}

func newEntityCaches() *entityCaches {
	return &entityCaches{
		manufacturers: newEntityCache(),
		features:      newEntityCache(),
		featureValues: newEntityCache(),
	}
}

// GetOrCreateManufacturer resolves a manufacturer name to a target id,
// finding or creating it remotely at most once per run.
func (im *Importer) GetOrCreateManufacturer(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	return im.caches.manufacturers.getOrCreate(name, func() (int, error) {
		id, err := im.client.FindID(ctx, "manufacturers", map[string]string{"name": name})
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
		id, err = im.client.Add(ctx, "manufacturers", ManufacturerSchema{Name: name, Active: "1"})
		if err != nil {
			return 0, err
		}
		im.Metrics.IncCreated("manufacturer")
		slog.Info("created manufacturer", slog.String("name", name), slog.Int("id", id))
		return id, nil
	})
}

// GetOrCreateFeature resolves a feature name to a target id.
func (im *Importer) GetOrCreateFeature(ctx context.Context, name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("feature name is empty")
	}
	return im.caches.features.getOrCreate(name, func() (int, error) {
		id, err := im.client.FindID(ctx, "product_features", map[string]string{"name": name})
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
		id, err = im.client.Add(ctx, "product_features", FeatureSchema{Name: lang(name), Position: "0"})
		if err != nil {
			return 0, err
		}
		im.Metrics.IncCreated("feature")
		slog.Info("created feature", slog.String("name", name), slog.Int("id", id))
		return id, nil
	})
}

// GetOrCreateFeatureValue resolves one concrete value of a feature.
// Values are keyed per feature: the same string under two different
// features is two distinct entities.
func (im *Importer) GetOrCreateFeatureValue(ctx context.Context, featureID int, value string) (int, error) {
	if featureID == 0 {
		return 0, fmt.Errorf("feature id is zero")
	}
	if value == "" {
		return 0, fmt.Errorf("feature value is empty")
	}
	key := strconv.Itoa(featureID) + "\x00" + value
	return im.caches.featureValues.getOrCreate(key, func() (int, error) {
		id, err := im.client.FindID(ctx, "product_feature_values", map[string]string{
			"id_feature": strconv.Itoa(featureID),
			"value":      value,
		})
		if err != nil {
			return 0, err
		}
		if id != 0 {
			return id, nil
		}
		id, err = im.client.Add(ctx, "product_feature_values", FeatureValueSchema{
			FeatureID: strconv.Itoa(featureID),
			Custom:    "0",
			Value:     lang(value),
		})
		if err != nil {
			return 0, err
		}
		im.Metrics.IncCreated("feature_value")
		return id, nil
	})
}
