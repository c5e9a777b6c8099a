// Package catalog loads the static document, grant and form template
// definitions the engines evaluate against. Catalogs are read once at
// startup from embedded JSON and treated as immutable for the process
// lifetime; a malformed catalog is a fatal startup error.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harvestfund/granary/internal/alias"
	"github.com/harvestfund/granary/internal/model"
)

//go:embed data
var dataFS embed.FS

// Catalog is the loaded, indexed registry of all static definitions.
type Catalog struct {
	documents      []model.DocumentDefinition
	documentsByKey map[string]*model.DocumentDefinition
	grants         []model.GrantDefinition
	grantsByKey    map[string]*model.GrantDefinition
	forms          map[string]*model.FormTemplate
	profileAliases *alias.Resolver
}

// Load parses and indexes the embedded catalogs.
func Load() (*Catalog, error) {
	c := &Catalog{
		documentsByKey: make(map[string]*model.DocumentDefinition),
		grantsByKey:    make(map[string]*model.GrantDefinition),
		forms:          make(map[string]*model.FormTemplate),
	}

	if err := c.loadDocuments(); err != nil {
		return nil, fmt.Errorf("failed to load document catalog: %w", err)
	}
	if err := c.loadGrants(); err != nil {
		return nil, fmt.Errorf("failed to load grant catalog: %w", err)
	}
	if err := c.loadForms(); err != nil {
		return nil, fmt.Errorf("failed to load form templates: %w", err)
	}
	if err := c.loadProfileAliases(); err != nil {
		return nil, fmt.Errorf("failed to load profile aliases: %w", err)
	}

	return c, nil
}

func (c *Catalog) loadDocuments() error {
	raw, err := dataFS.ReadFile("data/documents.json")
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, &c.documents); err != nil {
		return fmt.Errorf("invalid documents.json: %w", err)
	}

	for i := range c.documents {
		def := &c.documents[i]
		if err := def.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(def.Key)
		if _, dup := c.documentsByKey[key]; dup {
			return fmt.Errorf("duplicate document key %q", def.Key)
		}
		c.documentsByKey[key] = def
		for _, a := range def.Aliases {
			c.documentsByKey[strings.ToLower(a)] = def
		}
	}

	return nil
}

func (c *Catalog) loadProfileAliases() error {
	raw, err := dataFS.ReadFile("data/profile_aliases.json")
	if err != nil {
		return err
	}

	var table map[string][]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return fmt.Errorf("invalid profile_aliases.json: %w", err)
	}

	c.profileAliases = alias.NewResolver(table)
	return nil
}

// Documents returns all document definitions in registration order.
func (c *Catalog) Documents() []model.DocumentDefinition {
	return c.documents
}

// Document looks up a document definition by key or alias, case-insensitive.
func (c *Catalog) Document(keyOrAlias string) (*model.DocumentDefinition, bool) {
	def, ok := c.documentsByKey[strings.ToLower(keyOrAlias)]
	return def, ok
}

// FieldAliases returns an alias resolver for one document type's fields.
func (c *Catalog) FieldAliases(docKey string) *alias.Resolver {
	if def, ok := c.Document(docKey); ok {
		return alias.NewResolver(def.FieldAliases)
	}
	return alias.NewResolver(nil)
}

// Grants returns all grant definitions in catalog order.
func (c *Catalog) Grants() []model.GrantDefinition {
	return c.grants
}

// Grant looks up a grant definition by key.
func (c *Catalog) Grant(key string) (*model.GrantDefinition, bool) {
	g, ok := c.grantsByKey[strings.ToLower(key)]
	return g, ok
}

// Form looks up a normalized form template by key.
func (c *Catalog) Form(key string) (*model.FormTemplate, bool) {
	f, ok := c.forms[strings.ToLower(key)]
	return f, ok
}

// FormKeys lists the available form template keys.
func (c *Catalog) FormKeys() []string {
	keys := make([]string, 0, len(c.forms))
	for k := range c.forms {
		keys = append(keys, k)
	}
	return keys
}

// ProfileAliases resolves analyzer/document field names to canonical
// profile field names.
func (c *Catalog) ProfileAliases() *alias.Resolver {
	return c.profileAliases
}
