package domain

// LanguageDescriptor is an immutable, startup-loaded description of one
// supported language. Fields mirror the judge0-style language table: a
// stable name, the filename the source is staged to inside the sandbox, an
// optional compile command template, and the run command.
type LanguageDescriptor struct {
	Name          string `mapstructure:"name"`
	SourceFile    string `mapstructure:"source_file"`
	FileExtension string `mapstructure:"file_extension"`
	Version       string `mapstructure:"version"`
	CompileCmd    string `mapstructure:"compile_cmd"`
	RunCmd        string `mapstructure:"run_cmd"`
	AllowNetwork  bool   `mapstructure:"allow_network"`
}

// HasCompileStep reports whether submissions in this language go through a
// separate compile phase before running.
func (l LanguageDescriptor) HasCompileStep() bool {
	return l.CompileCmd != ""
}
