package catalog

// WeightedAverageCost blends an inbound quantity at unitCost into the
// existing average. The degenerate case oldQty+qty == 0 keeps the old cost.
// Cost is tracked per product across all warehouses, so oldQty is the
// product's global stock at posting time.
func WeightedAverageCost(oldQty, oldCost, qty, unitCost float64) float64 {
	totalQty := oldQty + qty
	if totalQty == 0 {
		return oldCost
	}
	return (oldQty*oldCost + qty*unitCost) / totalQty
}
