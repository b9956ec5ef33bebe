// Package versiondetails reads the eng/Version.Details.xml dependency manifest.
package versiondetails

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/depflow/internal/gitprovider"
)

// FilePath is the repository-relative location of the manifest.
const FilePath = "eng/Version.Details.xml"

const (
	productDependenciesElementConstant     = "ProductDependencies"
	toolsetDependenciesElementConstant     = "ToolsetDependencies"
	dependencyElementConstant              = "Dependency"
	byteOrderMarkConstant                  = "\ufeff"
	documentUnreadableMessageConstant      = "document cannot be parsed"
	topLevelDependencyMessageConstant      = "Dependency elements must belong to a group such as ProductDependencies"
	unknownGroupTemplateConstant           = "unknown dependency type %q"
	invalidBooleanTemplateConstant         = "attribute %s of %s is not a valid boolean: %q"
	missingRepoNameTemplateConstant        = "RepoName of SourceBuild missing in %q"
	missingSourceAttributeTemplateConstant = "Source element is missing the %s attribute"
	pinnedAttributeNameConstant            = "Pinned"
	skipPropertyAttributeNameConstant      = "SkipProperty"
	managedOnlyAttributeNameConstant       = "ManagedOnly"
	tarballOnlyAttributeNameConstant       = "TarballOnly"
	uriAttributeNameConstant               = "Uri"
	shaAttributeNameConstant               = "Sha"
	mappingAttributeNameConstant           = "Mapping"
)

// SourceDependency records the VMR commit a repository last received code from.
type SourceDependency struct {
	URI     string
	Mapping string
	SHA     string
	BarID   int
}

// VersionDetails is the parsed manifest.
type VersionDetails struct {
	Dependencies []gitprovider.DependencyDetail
	Source       *SourceDependency
}

// ParseOptions tunes Parse.
type ParseOptions struct {
	ExcludePinned bool
}

type documentElement struct {
	Source *sourceElement `xml:"Source"`
	Groups []groupElement `xml:",any"`
}

type groupElement struct {
	XMLName      xml.Name
	Dependencies []dependencyElement `xml:"Dependency"`
}

type dependencyElement struct {
	Name               string              `xml:"Name,attr"`
	Version            string              `xml:"Version,attr"`
	CoherentParent     string              `xml:"CoherentParentDependency,attr"`
	Pinned             *string             `xml:"Pinned,attr"`
	SkipProperty       *string             `xml:"SkipProperty,attr"`
	URI                string              `xml:"Uri"`
	SHA                string              `xml:"Sha"`
	SourceBuild        *sourceBuildElement `xml:"SourceBuild"`
	SourceBuildTarball *sourceBuildElement `xml:"SourceBuildTarball"`
}

type sourceBuildElement struct {
	RepoName    *string `xml:"RepoName,attr"`
	ManagedOnly *string `xml:"ManagedOnly,attr"`
	TarballOnly *string `xml:"TarballOnly,attr"`
}

type sourceElement struct {
	URI     *string `xml:"Uri,attr"`
	Mapping *string `xml:"Mapping,attr"`
	SHA     *string `xml:"Sha,attr"`
	BarID   string  `xml:"BarId,attr"`
}

// Parse decodes manifest content. Dependencies keep document order.
func Parse(content string, options ParseOptions) (VersionDetails, error) {
	trimmed := strings.TrimPrefix(content, byteOrderMarkConstant)

	var document documentElement
	if decodeError := xml.NewDecoder(bytes.NewReader([]byte(trimmed))).Decode(&document); decodeError != nil {
		return VersionDetails{}, malformed(documentUnreadableMessageConstant, decodeError)
	}

	dependencies := []gitprovider.DependencyDetail{}
	for _, group := range document.Groups {
		if len(group.Dependencies) == 0 {
			if group.XMLName.Local == dependencyElementConstant {
				return VersionDetails{}, malformed(topLevelDependencyMessageConstant, nil)
			}
			continue
		}

		dependencyType, typeError := groupDependencyType(group.XMLName.Local)
		if typeError != nil {
			return VersionDetails{}, typeError
		}
		for _, element := range group.Dependencies {
			dependency, dependencyError := element.toDependencyDetail(dependencyType)
			if dependencyError != nil {
				return VersionDetails{}, dependencyError
			}
			if options.ExcludePinned && dependency.Pinned {
				continue
			}
			dependencies = append(dependencies, dependency)
		}
	}

	source, sourceError := document.Source.toSourceDependency()
	if sourceError != nil {
		return VersionDetails{}, sourceError
	}
	return VersionDetails{Dependencies: dependencies, Source: source}, nil
}

func groupDependencyType(groupName string) (gitprovider.DependencyType, error) {
	switch groupName {
	case productDependenciesElementConstant:
		return gitprovider.DependencyTypeProduct, nil
	case toolsetDependenciesElementConstant:
		return gitprovider.DependencyTypeToolset, nil
	default:
		return "", malformed(fmt.Sprintf(unknownGroupTemplateConstant, groupName), nil)
	}
}

func (element dependencyElement) toDependencyDetail(dependencyType gitprovider.DependencyType) (gitprovider.DependencyDetail, error) {
	name := strings.TrimSpace(element.Name)
	pinned, pinnedError := parseBooleanAttribute(element.Pinned, pinnedAttributeNameConstant, name)
	if pinnedError != nil {
		return gitprovider.DependencyDetail{}, pinnedError
	}
	skipProperty, skipError := parseBooleanAttribute(element.SkipProperty, skipPropertyAttributeNameConstant, name)
	if skipError != nil {
		return gitprovider.DependencyDetail{}, skipError
	}

	sourceBuildElement := element.SourceBuild
	if sourceBuildElement == nil {
		sourceBuildElement = element.SourceBuildTarball
	}
	var sourceBuild *gitprovider.SourceBuildInfo
	if sourceBuildElement != nil {
		parsed, sourceBuildError := sourceBuildElement.toSourceBuildInfo(name)
		if sourceBuildError != nil {
			return gitprovider.DependencyDetail{}, sourceBuildError
		}
		sourceBuild = &parsed
	}

	return gitprovider.DependencyDetail{
		Name:                         name,
		Version:                      strings.TrimSpace(element.Version),
		Commit:                       strings.TrimSpace(element.SHA),
		RepoURI:                      strings.TrimSpace(element.URI),
		Type:                         dependencyType,
		Pinned:                       pinned,
		CoherentParentDependencyName: strings.TrimSpace(element.CoherentParent),
		SkipProperty:                 skipProperty,
		SourceBuild:                  sourceBuild,
	}, nil
}

func (element sourceBuildElement) toSourceBuildInfo(dependencyName string) (gitprovider.SourceBuildInfo, error) {
	if element.RepoName == nil {
		return gitprovider.SourceBuildInfo{}, malformed(fmt.Sprintf(missingRepoNameTemplateConstant, dependencyName), nil)
	}
	managedOnly, managedError := parseBooleanAttribute(element.ManagedOnly, managedOnlyAttributeNameConstant, dependencyName)
	if managedError != nil {
		return gitprovider.SourceBuildInfo{}, managedError
	}
	tarballOnly, tarballError := parseBooleanAttribute(element.TarballOnly, tarballOnlyAttributeNameConstant, dependencyName)
	if tarballError != nil {
		return gitprovider.SourceBuildInfo{}, tarballError
	}
	return gitprovider.SourceBuildInfo{
		RepoName:    strings.TrimSpace(*element.RepoName),
		ManagedOnly: managedOnly,
		TarballOnly: tarballOnly,
	}, nil
}

func (element *sourceElement) toSourceDependency() (*SourceDependency, error) {
	if element == nil {
		return nil, nil
	}
	required := []struct {
		name  string
		value *string
	}{
		{name: uriAttributeNameConstant, value: element.URI},
		{name: shaAttributeNameConstant, value: element.SHA},
		{name: mappingAttributeNameConstant, value: element.Mapping},
	}
	for _, attribute := range required {
		if attribute.value == nil {
			return nil, malformed(fmt.Sprintf(missingSourceAttributeTemplateConstant, attribute.name), nil)
		}
	}

	// An unparsable BarId reads as zero.
	barID, _ := strconv.Atoi(strings.TrimSpace(element.BarID))
	return &SourceDependency{
		URI:     strings.TrimSpace(*element.URI),
		Mapping: strings.TrimSpace(*element.Mapping),
		SHA:     strings.TrimSpace(*element.SHA),
		BarID:   barID,
	}, nil
}

func parseBooleanAttribute(value *string, attributeName string, dependencyName string) (bool, error) {
	if value == nil {
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(*value)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, malformed(fmt.Sprintf(invalidBooleanTemplateConstant, attributeName, dependencyName, *value), nil)
	}
}

func malformed(message string, cause error) error {
	return gitprovider.MalformedInputError{Input: FilePath, Message: message, Cause: cause}
}
