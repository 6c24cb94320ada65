package blank

// Sheet is one candidate raw-sheet size from the factory pool.
type Sheet struct {
	ID     int64   `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BestFit selects the pool sheet that covers the required width and
// height with the least joint excess, measured as the squared Euclidean
// distance (sheet.Width-w)^2 + (sheet.Height-h)^2. Ties keep the
// earlier pool entry. ok is false when no sheet is large enough.
//
// This is per-unit best-fit selection only; it does not nest multiple
// units on one sheet.
func BestFit(w, h float64, pool []Sheet) (best Sheet, ok bool) {
	bestDist := 0.0
	for _, s := range pool {
		if s.Width < w || s.Height < h {
			continue
		}
		dw := s.Width - w
		dh := s.Height - h
		dist := dw*dw + dh*dh
		if !ok || dist < bestDist {
			best = s
			bestDist = dist
			ok = true
		}
	}
	return best, ok
}
