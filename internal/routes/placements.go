package routes

import "memoria/api/internal/content"

// Placement describes one public page where a module's items appear:
// its list path template, how cards are rendered there, and which fields
// the reading view shows. Static reference data, not derived from content.
type Placement struct {
	Module        content.Module `json:"module"`
	Label         string         `json:"label"`
	Path          string         `json:"path"`
	DisplayType   string         `json:"displayType"`
	CardFields    []string       `json:"cardFields"`
	ReadingFields []string       `json:"readingFields"`
}

var placements = []Placement{
	{
		Module:        content.ModuleDocumentos,
		Label:         "Documentos",
		Path:          "/acervo/documentos",
		DisplayType:   "grid",
		CardFields:    []string{"title", "coverImage", "tags"},
		ReadingFields: []string{"title", "description", "pages", "tags"},
	},
	{
		Module:        content.ModuleDocumentos,
		Label:         "Cartazes",
		Path:          "/acervo/cartazes",
		DisplayType:   "gallery",
		CardFields:    []string{"title", "coverImage"},
		ReadingFields: []string{"title", "description", "pages"},
	},
	{
		Module:        content.ModuleDepoimentos,
		Label:         "Depoimentos",
		Path:          "/depoimentos",
		DisplayType:   "list",
		CardFields:    []string{"title", "coverImage", "description"},
		ReadingFields: []string{"title", "description", "testimonialText"},
	},
	{
		Module:        content.ModuleReferencias,
		Label:         "Referências",
		Path:          "/referencias",
		DisplayType:   "list",
		CardFields:    []string{"title", "description"},
		ReadingFields: []string{"title", "description", "citation"},
	},
	{
		Module:        content.ModuleJornais,
		Label:         "Jornais de época",
		Path:          "/jornais-de-epoca",
		DisplayType:   "grid",
		CardFields:    []string{"title", "coverImage", "tags"},
		ReadingFields: []string{"title", "description", "pages"},
	},
	{
		Module:        content.ModuleJornais,
		Label:         "Boletins",
		Path:          "/acervo/boletins",
		DisplayType:   "grid",
		CardFields:    []string{"title", "coverImage"},
		ReadingFields: []string{"title", "description", "pages"},
	},
	{
		Module:        content.ModuleAcervoFotografico,
		Label:         "Acervo fotográfico",
		Path:          "/acervo-fotografico",
		DisplayType:   "gallery",
		CardFields:    []string{"title", "coverImage"},
		ReadingFields: []string{"title", "description", "photos"},
	},
	{
		Module:        content.ModuleAcervosPessoais,
		Label:         "Acervos pessoais",
		Path:          "/acervos-pessoais",
		DisplayType:   "grid",
		CardFields:    []string{"title", "coverImage", "description"},
		ReadingFields: []string{"title", "description", "sections"},
	},
}

// Placements returns the full placement map in display order.
func Placements() []Placement {
	out := make([]Placement, len(placements))
	copy(out, placements)
	return out
}

// PlacementsFor filters the placement map for a single module.
func PlacementsFor(module content.Module) []Placement {
	var out []Placement
	for _, p := range placements {
		if p.Module == module {
			out = append(out, p)
		}
	}
	return out
}
