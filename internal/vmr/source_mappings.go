package vmr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

// SourceMappingsPath is the VMR-relative location of the source mappings.
const SourceMappingsPath = "src/source-mappings.json"

const (
	defaultRefConstant                   = "main"
	mappingsUnreadableMessageConstant    = "source mappings cannot be decoded"
	mappingsEmptyMessageConstant         = "source mappings document is empty"
	mappingNameMissingMessageConstant    = "mapping without a name"
	mappingRemoteMissingTemplateConstant = "mapping %s has no defaultRemote"
)

// SourceMapping describes how one repository is mirrored into the VMR.
type SourceMapping struct {
	Name                   string
	Version                string
	DefaultRemote          string
	DefaultRef             string
	Include                []string
	Exclude                []string
	DisableSynchronization bool
}

// SourceMappings is the decoded mappings document with defaults applied.
type SourceMappings struct {
	ThirdPartyNoticesTemplatePath string
	Mappings                      []SourceMapping
}

type mappingDefaultsDocument struct {
	DefaultRef string   `json:"defaultRef"`
	Include    []string `json:"include"`
	Exclude    []string `json:"exclude"`
}

type mappingDocument struct {
	Name                   string   `json:"name"`
	Version                string   `json:"version"`
	DefaultRemote          string   `json:"defaultRemote"`
	DefaultRef             string   `json:"defaultRef"`
	Include                []string `json:"include"`
	Exclude                []string `json:"exclude"`
	IgnoreDefaults         bool     `json:"ignoreDefaults"`
	DisableSynchronization bool     `json:"disableSynchronization"`
}

type mappingsDocument struct {
	ThirdPartyNoticesTemplatePath string                  `json:"thirdPartyNoticesTemplatePath"`
	Defaults                      mappingDefaultsDocument `json:"defaults"`
	Mappings                      []mappingDocument       `json:"mappings"`
}

// ParseSourceMappings decodes mappings content and merges each mapping with
// the document defaults unless the mapping opts out with ignoreDefaults.
func ParseSourceMappings(content string) (SourceMappings, error) {
	var document *mappingsDocument
	if decodeError := json.Unmarshal([]byte(content), &document); decodeError != nil {
		return SourceMappings{}, malformedMappings(mappingsUnreadableMessageConstant, decodeError)
	}
	if document == nil {
		return SourceMappings{}, malformedMappings(mappingsEmptyMessageConstant, nil)
	}

	defaultRef := document.Defaults.DefaultRef
	if len(strings.TrimSpace(defaultRef)) == 0 {
		defaultRef = defaultRefConstant
	}

	mappings := make([]SourceMapping, 0, len(document.Mappings))
	for _, entry := range document.Mappings {
		if len(strings.TrimSpace(entry.Name)) == 0 {
			return SourceMappings{}, malformedMappings(mappingNameMissingMessageConstant, nil)
		}
		if len(strings.TrimSpace(entry.DefaultRemote)) == 0 {
			return SourceMappings{}, malformedMappings(fmt.Sprintf(mappingRemoteMissingTemplateConstant, entry.Name), nil)
		}

		mapping := SourceMapping{
			Name:                   entry.Name,
			Version:                entry.Version,
			DefaultRemote:          entry.DefaultRemote,
			DefaultRef:             entry.DefaultRef,
			Include:                append([]string{}, entry.Include...),
			Exclude:                append([]string{}, entry.Exclude...),
			DisableSynchronization: entry.DisableSynchronization,
		}
		if len(mapping.DefaultRef) == 0 {
			mapping.DefaultRef = defaultRef
		}
		if !entry.IgnoreDefaults {
			mapping.Include = append(append([]string{}, document.Defaults.Include...), entry.Include...)
			mapping.Exclude = append(append([]string{}, document.Defaults.Exclude...), entry.Exclude...)
		}
		mappings = append(mappings, mapping)
	}

	return SourceMappings{
		ThirdPartyNoticesTemplatePath: document.ThirdPartyNoticesTemplatePath,
		Mappings:                      mappings,
	}, nil
}

// Mapping finds a mapping by name, ignoring case.
func (mappings SourceMappings) Mapping(name string) (SourceMapping, bool) {
	for _, mapping := range mappings.Mappings {
		if strings.EqualFold(mapping.Name, name) {
			return mapping, true
		}
	}
	return SourceMapping{}, false
}

func malformedMappings(message string, cause error) error {
	return gitprovider.MalformedInputError{Input: SourceMappingsPath, Message: message, Cause: cause}
}
