package config

import "github.com/oj-platform/judge-executor/internal/domain"

// LanguageRegistry resolves a language name to its immutable descriptor.
type LanguageRegistry struct {
	byName map[string]domain.LanguageDescriptor
}

// NewLanguageRegistry builds a registry from the loaded config.
func NewLanguageRegistry(cfg *Config) *LanguageRegistry {
	r := &LanguageRegistry{byName: make(map[string]domain.LanguageDescriptor, len(cfg.Languages))}
	for _, l := range cfg.Languages {
		r.byName[l.Name] = domain.LanguageDescriptor{
			Name:          l.Name,
			SourceFile:    l.SourceFile,
			FileExtension: l.FileExtension,
			Version:       l.Version,
			CompileCmd:    l.CompileCmd,
			RunCmd:        l.RunCmd,
			AllowNetwork:  l.AllowNetwork,
		}
	}
	return r
}

// Lookup returns the descriptor for name and whether it was found.
func (r *LanguageRegistry) Lookup(name string) (domain.LanguageDescriptor, bool) {
	l, ok := r.byName[name]
	return l, ok
}

// All returns every configured language, for the GET /languages endpoint.
func (r *LanguageRegistry) All() []domain.LanguageDescriptor {
	out := make([]domain.LanguageDescriptor, 0, len(r.byName))
	for _, l := range r.byName {
		out = append(out, l)
	}
	return out
}
