package config

import "jobtally/internal/model"

// Confirmation wording is reliable only in the subject line; system and team
// names show up in bodies, sender names and sender addresses.
var defaultTaxonomy = model.Taxonomy{
	{Text: "application received", Scope: model.ScopeSubject},
	{Text: "thank you for applying", Scope: model.ScopeSubject},
	{Text: "thank you for Your application", Scope: model.ScopeSubject},
	{Text: "application confirmation", Scope: model.ScopeSubject},
	{Text: "application submitted", Scope: model.ScopeSubject},
	{Text: "candidate profile", Scope: model.ScopeSubject},
	{Text: "Your application", Scope: model.ScopeSubject},
	{Text: "we received your", Scope: model.ScopeSubject},
	{Text: "your application to", Scope: model.ScopeSubject},

	{Text: "application portal", Scope: model.ScopeAnywhere},
	{Text: "Greenhouse", Scope: model.ScopeAnywhere},
	{Text: "recruiting team", Scope: model.ScopeAnywhere},
	{Text: "talent team", Scope: model.ScopeAnywhere},
	{Text: "talent acquisition team", Scope: model.ScopeAnywhere},

	{Text: "Bewerbung erhalten", Scope: model.ScopeSubject},
	{Text: "Vielen Dank für Ihre Bewerbung", Scope: model.ScopeSubject},
	{Text: "Vielen Dank für deine Bewerbung", Scope: model.ScopeSubject},
	{Text: "Ihre Bewerbung", Scope: model.ScopeSubject},
	{Text: "deine Bewerbung", Scope: model.ScopeSubject},
	{Text: "Eingangsbestätigung", Scope: model.ScopeSubject},
}

// DefaultTaxonomy returns a fresh copy of the built-in taxonomy.
func DefaultTaxonomy() model.Taxonomy {
	out := make(model.Taxonomy, len(defaultTaxonomy))
	copy(out, defaultTaxonomy)
	return out
}
