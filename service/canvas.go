package service

import (
	"context"
	"encoding/json"

	"github.com/jinukim/inkverse/cache"
	"github.com/jinukim/inkverse/models"
)

// LoadCanvas returns every stroke on the canvas ordered by creation time.
// Reads go cache-first; on a miss or partial cache the durable store is
// queried, merged with whatever the cache held, and the cache reseeded.
func (s *Service) LoadCanvas(ctx context.Context) ([]models.Stroke, error) {
	cachedRaw, err := s.Cache.GetStrokes(ctx)
	cachedStrokes := []models.Stroke{}
	if err == nil {
		for _, b := range cachedRaw {
			var stroke models.Stroke
			if err := json.Unmarshal(b, &stroke); err == nil {
				cachedStrokes = append(cachedStrokes, stroke)
			}
		}
	}

	isComplete, _ := s.Cache.IsCanvasComplete(ctx)
	if isComplete && err == nil {
		return cachedStrokes, nil
	}

	// Fallback to the store and merge with the cache contents
	dbStrokes, err := s.Store.GetStrokes(ctx)
	if err != nil {
		return nil, err
	}

	finalStrokes := mergeStrokes(dbStrokes, cachedStrokes)

	batchItems := make([]cache.StrokeCacheItem, 0, len(dbStrokes))
	for _, stroke := range dbStrokes {
		sBytes, _ := json.Marshal(stroke)
		batchItems = append(batchItems, cache.StrokeCacheItem{
			StrokeId: stroke.Id,
			Score:    stroke.CreatedAt,
			Data:     sBytes,
		})
	}

	if len(batchItems) > 0 {
		s.Cache.AddStrokesBatch(ctx, batchItems)
	}
	s.Cache.SetCanvasComplete(ctx)

	return finalStrokes, nil
}

// mergeStrokes merges two id-ordered stroke lists, deduplicating on id.
// UUIDv7 ids sort chronologically, so the result stays in creation order.
func mergeStrokes(dbStrokes []models.Stroke, cachedStrokes []models.Stroke) []models.Stroke {
	finalStrokes := make([]models.Stroke, 0, len(dbStrokes)+len(cachedStrokes))
	i, j := 0, 0
	for i < len(dbStrokes) && j < len(cachedStrokes) {
		dbId := dbStrokes[i].Id
		cachedId := cachedStrokes[j].Id

		if dbId == cachedId {
			finalStrokes = append(finalStrokes, cachedStrokes[j])
			i++
			j++
		} else if dbId < cachedId {
			finalStrokes = append(finalStrokes, dbStrokes[i])
			i++
		} else {
			finalStrokes = append(finalStrokes, cachedStrokes[j])
			j++
		}
	}
	if i < len(dbStrokes) {
		finalStrokes = append(finalStrokes, dbStrokes[i:]...)
	}
	if j < len(cachedStrokes) {
		finalStrokes = append(finalStrokes, cachedStrokes[j:]...)
	}
	return finalStrokes
}
