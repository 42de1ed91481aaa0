// README: Leak guard: keeps the pricing formula out of every outbound text.
package chat

import "regexp"

// leakRe matches fragments that betray the pricing formula: per-km rates and
// the base-fare vocabulary in any of the forms the model has been seen to
// produce.
var leakRe = regexp.MustCompile(`(?i)€\s*/\s*km|eur\s*/\s*km|\(base|base\)|\bbase\b`)

// SafePriceAnswer replaces any reply that would have exposed how a price is
// put together.
const SafePriceAnswer = "Je peux vous communiquer un total estimé, sans détail de calcul. Indiquez-moi votre trajet et je vous donne le prix directement."

// ContainsLeak reports whether a text matches a pricing-formula leak pattern.
func ContainsLeak(text string) bool {
	return leakRe.MatchString(text)
}

// FilterLeaks returns the text unchanged unless it leaks pricing internals,
// in which case the whole text is replaced. Partial rewrites are not
// attempted: a sentence built around the formula rarely survives redaction
// intact.
func FilterLeaks(text string) string {
	if text == "" || !ContainsLeak(text) {
		return text
	}
	return SafePriceAnswer
}

// SanitizeFormUpdate validates a proposed form update against the current
// catalogs. Unknown vehicle ids are dropped, option ids are filtered to the
// catalog — preserving an explicit empty list, which means "no options" —
// and suggested vehicles are filtered the same way. Returns nil when nothing
// survives.
func SanitizeFormUpdate(fu *FormUpdate, vehicles []CatalogVehicle, options []CatalogOption) *FormUpdate {
	if fu == nil {
		return nil
	}
	out := FormUpdate{
		Pickup:     capStr(fu.Pickup, maxAddressLen),
		Dropoff:    capStr(fu.Dropoff, maxAddressLen),
		PickupDate: capStr(fu.PickupDate, 20),
		PickupTime: capStr(fu.PickupTime, 10),
	}

	if fu.VehicleID != "" && knownVehicle(fu.VehicleID, vehicles) {
		out.VehicleID = fu.VehicleID
	}
	for _, id := range fu.SuggestedVehicleIDs {
		if knownVehicle(id, vehicles) {
			out.SuggestedVehicleIDs = append(out.SuggestedVehicleIDs, id)
		}
	}

	if fu.OptionIDs != nil {
		kept := make([]string, 0, len(*fu.OptionIDs))
		for _, id := range *fu.OptionIDs {
			if knownOption(id, options) {
				kept = append(kept, id)
			}
		}
		out.OptionIDs = &kept
	}

	if out.Pickup == "" && out.Dropoff == "" && out.PickupDate == "" && out.PickupTime == "" &&
		out.VehicleID == "" && out.OptionIDs == nil && len(out.SuggestedVehicleIDs) == 0 {
		return nil
	}
	return &out
}

func knownVehicle(id string, vehicles []CatalogVehicle) bool {
	for _, v := range vehicles {
		if v.ID == id {
			return true
		}
	}
	return false
}

func knownOption(id string, options []CatalogOption) bool {
	for _, o := range options {
		if o.ID == id {
			return true
		}
	}
	return false
}
