package cart

import "github.com/example/hottubshop/pkg/models"

// Configure builds the cart snapshot for product p with the options whose ids are in
// selectedIDs. Unknown ids are ignored, at most one option per group may be chosen and every
// required group needs a choice.
func Configure(p models.Product, selectedIDs []string, lang string) (models.CartItem, error) {
	lang = models.NormalizeLanguage(lang)
	wanted := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		wanted[id] = struct{}{}
	}

	verr := models.NewValidationError()
	var selected []models.Option
	for _, o := range p.Options {
		if _, ok := wanted[o.ID]; !ok {
			continue
		}
		for _, prev := range selected {
			if o.GroupName != "" && models.SameGroup(prev.GroupName, o.GroupName) {
				verr.Add(o.GroupName, "only one option per group can be selected")
			}
		}
		selected = append(selected, o)
	}

	for _, g := range p.RequiredGroups() {
		chosen := false
		for _, o := range selected {
			if models.SameGroup(o.GroupName, g) {
				chosen = true
				break
			}
		}
		if !chosen {
			verr.Add(g, "a selection is required")
		}
	}

	if err := verr.Err(); err != nil {
		return models.CartItem{}, err
	}
	if selected == nil {
		selected = []models.Option{}
	}
	return models.NewCartItem(p, selected, lang), nil
}
