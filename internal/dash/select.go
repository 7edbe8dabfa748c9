package dash

// SelectBest picks the Representation with the numerically highest bandwidth
// in the set. Equal bandwidths keep the earlier representation, so repeated
// runs over the same manifest always choose the same variant.
func SelectBest(as *AdaptationSet) (*Representation, error) {
	if len(as.Representations) == 0 {
		return nil, &SelectionError{SetID: as.ID, ContentType: as.ContentType}
	}

	best := &as.Representations[0]
	for i := 1; i < len(as.Representations); i++ {
		if as.Representations[i].Bandwidth > best.Bandwidth {
			best = &as.Representations[i]
		}
	}
	return best, nil
}
