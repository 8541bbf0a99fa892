package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/varweave/varweave/internal/pkg/catalog"
	"github.com/varweave/varweave/internal/pkg/rules"
)

func catalogProviderPayload(p *catalog.Provider) fiber.Map {
	categories := make([]fiber.Map, 0, len(p.Categories))
	for i := range p.Categories {
		cat := &p.Categories[i]
		attrs := make([]fiber.Map, 0, len(cat.Attributes))
		for _, a := range cat.Attributes {
			attrs = append(attrs, fiber.Map{
				"name":      a.Name,
				"label":     a.Label,
				"data_type": a.Type,
				"unit":      a.Unit,
				"doc_url":   a.DocURL,
				"operators": rules.OperatorsFor(a.Type),
			})
		}
		categories = append(categories, fiber.Map{
			"name":       cat.Name,
			"label":      cat.Label,
			"attributes": attrs,
		})
	}
	return fiber.Map{
		"name":         p.Name,
		"kind":         p.Kind,
		"scopes":       p.Scopes,
		"requires_app": p.RequiresApp,
		"categories":   categories,
	}
}

// HandleGetCatalog serves the static provider/category/attribute registry,
// including the operators registered per attribute type, so the researcher
// UI can build variable definitions without hardcoding any of it.
func HandleGetCatalog(c *fiber.Ctx) error {
	providers := make([]fiber.Map, 0)
	for _, p := range catalog.Providers() {
		providers = append(providers, catalogProviderPayload(p))
	}
	return c.JSON(fiber.Map{"providers": providers})
}

// HandleGetCatalogProvider serves a single provider's catalog entry.
func HandleGetCatalogProvider(c *fiber.Ctx) error {
	p, ok := catalog.Get(c.Params("provider"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown provider"})
	}
	return c.JSON(catalogProviderPayload(p))
}
