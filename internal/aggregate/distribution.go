package aggregate

import "github.com/DeafMist/comment-sentiment/internal/models"

// Distribution is the share of each label over successfully classified
// comments.
type Distribution struct {
	Counts      map[models.Label]int     `json:"counts"`
	Proportions map[models.Label]float64 `json:"proportions"`
	Total       int                      `json:"total"`
	Failed      int                      `json:"failed"`
}

// Distribute counts labels. Nil entries are failed items.
func Distribute(predictions []*models.Prediction) Distribution {
	d := Distribution{
		Counts:      make(map[models.Label]int, len(models.AllLabels)),
		Proportions: make(map[models.Label]float64, len(models.AllLabels)),
	}
	for _, l := range models.AllLabels {
		d.Counts[l] = 0
	}
	for _, p := range predictions {
		if p == nil {
			d.Failed++
			continue
		}
		d.Counts[p.Label]++
		d.Total++
	}
	for l, n := range d.Counts {
		if d.Total > 0 {
			d.Proportions[l] = float64(n) / float64(d.Total)
		} else {
			d.Proportions[l] = 0
		}
	}
	return d
}
