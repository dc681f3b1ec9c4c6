package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"folio/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	StoreConfig struct {
		Path string `yaml:"path" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
	}

	GlossaryConfig struct {
		Include        bool     `yaml:"include"`
		Types          []string `yaml:"types" validate:"dive,required"`
		OnlyReferenced bool     `yaml:"only_referenced"`
	}

	PDFConfig struct {
		PageSize string  `yaml:"page_size" validate:"oneof=A3 A4 A5 Letter Legal"`
		FontSize float64 `yaml:"font_size" validate:"gte=6,lte=36"`
	}

	ExportConfig struct {
		Format                common.Format  `yaml:"format"`
		IncludeTitlePage      bool           `yaml:"include_title_page"`
		IncludeTOC            bool           `yaml:"include_toc"`
		PreserveEntityMarks   bool           `yaml:"preserve_entity_marks"`
		Glossary              GlossaryConfig `yaml:"glossary"`
		FileNameTemplate      string         `yaml:"file_name_template"`
		FileNameTransliterate bool           `yaml:"file_name_transliterate"`
		FixZip                bool           `yaml:"fix_zip"`
		Language              string         `yaml:"language" validate:"omitempty,bcp47_language_tag"`
		StylesheetPath        string         `yaml:"stylesheet_path"`
		PDF                   PDFConfig      `yaml:"pdf"`
	}

	DetectionConfig struct {
		// Engine selects detector: remote language model, local heuristic or
		// remote when API key is available and local otherwise.
		Engine   string        `yaml:"engine" validate:"oneof=auto remote local"`
		Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
		Model    string        `yaml:"model" validate:"required_if=Engine remote"`
		APIKey   SecretString  `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
		Language string        `yaml:"language" validate:"omitempty,bcp47_language_tag"`
	}

	ImportConfig struct {
		Format         string            `yaml:"format" validate:"required"`
		Mode           common.ImportMode `yaml:"mode"`
		DetectEntities bool              `yaml:"detect_entities"`
		EntityTypes    []string          `yaml:"entity_types" validate:"dive,required"`
		Detection      DetectionConfig   `yaml:"detection"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Store     StoreConfig    `yaml:"store"`
		Export    ExportConfig   `yaml:"export"`
		Import    ImportConfig   `yaml:"import"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	FileNameTemplateFieldName TemplateFieldName = "file_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(FileNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("configuration sanitizing failed: %w", err)
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
