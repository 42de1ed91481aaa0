package tariff

// ApplyOptions computes the add-on fees for the selected option ids against a
// running total. Fixed options charge their amount as-is; percent options
// charge amount% of the running total. Ids absent from the catalog are
// silently skipped: the storefront widget may hold on to stale option ids
// after a tenant edits their catalog, and that must never fail a calculation.
func ApplyOptions(total float64, selectedIDs []string, catalog []Option) ([]AppliedOption, float64) {
	var applied []AppliedOption
	var sum float64
	for _, id := range selectedIDs {
		for _, opt := range catalog {
			if opt.ID != id {
				continue
			}
			fee := opt.Amount
			if opt.Type == OptionPercent {
				fee = total * opt.Amount / 100
			}
			fee = roundCents(fee)
			applied = append(applied, AppliedOption{
				ID:     opt.ID,
				Label:  opt.Label,
				Type:   opt.Type,
				Amount: opt.Amount,
				Fee:    fee,
			})
			sum += fee
			break
		}
	}
	return applied, roundCents(sum)
}
