// Package routes computes the public-facing placements of a content item.
// Resolution is a pure function of the item's module, slug, tags and
// relational keys; it never consults status or the store. Callers decide
// whether a route is actually navigable (published items only).
package routes

import (
	"strings"

	"memoria/api/internal/content"
)

// RouteDescriptor is one public page an item appears on. Produced fresh
// on every resolution, never persisted.
type RouteDescriptor struct {
	Label string `json:"label"`
	Path  string `json:"path"`
	URL   string `json:"url"`
}

// Input carries the draft fields resolution depends on. An empty slug is
// allowed: the resulting item route has an empty segment and is meant as
// a provisional as-you-type preview, not a navigable link.
type Input struct {
	Slug              string
	Tags              []string
	RelatedFundKey    string
	RelatedPersonSlug string
}

// Resolver turns resolved paths into absolute URLs for the public site.
// BaseURL and Locale come from environment configuration.
type Resolver struct {
	BaseURL string
	Locale  string
}

type moduleRoutes struct {
	itemLabel string
	listLabel string
	listPath  string
	// aliasItemLabel/aliasListPath cover modules the public site exposes
	// under two paths (jornais: /jornais-de-epoca and /acervo/boletins).
	aliasItemLabel string
	aliasListLabel string
	aliasListPath  string
}

var moduleTable = map[content.Module]moduleRoutes{
	content.ModuleDocumentos: {
		itemLabel: "Documento",
		listLabel: "Documentos",
		listPath:  "/acervo/documentos",
	},
	content.ModuleDepoimentos: {
		itemLabel: "Depoimento",
		listLabel: "Depoimentos",
		listPath:  "/depoimentos",
	},
	content.ModuleReferencias: {
		itemLabel: "Referência",
		listLabel: "Referências",
		listPath:  "/referencias",
	},
	content.ModuleJornais: {
		itemLabel:      "Jornal de época",
		listLabel:      "Jornais de época",
		listPath:       "/jornais-de-epoca",
		aliasItemLabel: "Boletim",
		aliasListLabel: "Boletins",
		aliasListPath:  "/acervo/boletins",
	},
	content.ModuleAcervoFotografico: {
		itemLabel: "Álbum fotográfico",
		listLabel: "Acervo fotográfico",
		listPath:  "/acervo-fotografico",
	},
	content.ModuleAcervosPessoais: {
		itemLabel: "Acervo pessoal",
		listLabel: "Acervos pessoais",
		listPath:  "/acervos-pessoais",
	},
}

const (
	tagCartazes  = "Cartazes"
	tagDomWaldyr = "Dom Waldyr"

	personArchivePrefix = "/acervo-pessoal"
	cartazesListPath    = "/acervo/cartazes"
	fundDomWaldyrKey    = "dom-waldyr"
	fundDomWaldyrPath   = "/acervo/fundos/dom-waldyr"
)

// cityTags maps the exact tag carried by an item to its city path segment.
// The public site only scopes lists for these two cities.
var cityTags = []struct {
	tag  string
	slug string
}{
	{"Volta Redonda", "volta-redonda"},
	{"Barra Mansa", "barra-mansa"},
}

// Resolve computes the ordered, path-deduplicated list of public routes
// for an item. Calling twice with identical inputs yields identical
// output, including order.
func (r Resolver) Resolve(module content.Module, in Input) []RouteDescriptor {
	table, ok := moduleTable[module]
	if !ok {
		return nil
	}

	var out []RouteDescriptor
	add := func(label, path string) {
		out = append(out, RouteDescriptor{Label: label, Path: path, URL: r.absolute(path)})
	}

	// acervos-pessoais is the person archive: it gets its own item and
	// list routes and nothing else, in particular no second person-archive
	// entry derived from relatedPersonSlug.
	if module == content.ModuleAcervosPessoais {
		add(table.itemLabel, personArchivePrefix+"/"+in.Slug)
		add(table.listLabel, table.listPath)
		return out
	}

	if in.RelatedPersonSlug != "" {
		add("Acervo pessoal", personArchivePrefix+"/"+in.RelatedPersonSlug)
	}

	hasTag := func(tag string) bool {
		for _, t := range in.Tags {
			if t == tag {
				return true
			}
		}
		return false
	}

	cartazes := module == content.ModuleDocumentos && hasTag(tagCartazes)
	if cartazes {
		add("Cartaz", cartazesListPath+"/"+in.Slug)
	} else {
		add(table.itemLabel, table.listPath+"/"+in.Slug)
	}
	if table.aliasListPath != "" {
		add(table.aliasItemLabel, table.aliasListPath+"/"+in.Slug)
	}

	add(table.listLabel, table.listPath)
	if cartazes {
		add("Cartazes", cartazesListPath)
	}
	if table.aliasListPath != "" {
		add(table.aliasListLabel, table.aliasListPath)
	}

	for _, city := range cityTags {
		if hasTag(city.tag) {
			add(table.listLabel+" de "+city.tag, table.listPath+"/cidade/"+city.slug)
		}
	}

	// Three independent signals mark an item as part of the Dom Waldyr
	// fund; any one of them is enough.
	if hasTag(tagDomWaldyr) || in.RelatedFundKey == fundDomWaldyrKey || in.RelatedPersonSlug == fundDomWaldyrKey {
		add("Fundo Dom Waldyr", fundDomWaldyrPath)
	}

	return dedupeByPath(out)
}

func (r Resolver) absolute(path string) string {
	base := strings.TrimRight(r.BaseURL, "/")
	locale := strings.Trim(r.Locale, "/")
	if locale == "" {
		return base + path
	}
	return base + "/" + locale + path
}

// dedupeByPath keeps the first occurrence of each path, preserving order.
func dedupeByPath(in []RouteDescriptor) []RouteDescriptor {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, rd := range in {
		if seen[rd.Path] {
			continue
		}
		seen[rd.Path] = true
		out = append(out, rd)
	}
	return out
}
