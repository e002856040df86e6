package discovery

import "encoding/json"

// Document is a parsed discovery document for one (api, version). Documents
// are owned by the loader cache and must be treated as read-only.
type Document struct {
	Kind             string                       `json:"kind"`
	ID               string                       `json:"id"`
	Name             string                       `json:"name"`
	Version          string                       `json:"version"`
	Revision         string                       `json:"revision,omitempty"`
	Title            string                       `json:"title"`
	Description      string                       `json:"description"`
	DocumentationURL string                       `json:"documentationLink,omitempty"`
	Protocol         string                       `json:"protocol,omitempty"`
	RootURL          string                       `json:"rootUrl"`
	ServicePath      string                       `json:"servicePath"`
	BaseURL          string                       `json:"baseUrl"`
	BatchPath        string                       `json:"batchPath,omitempty"`
	Parameters       map[string]*DocumentParam    `json:"parameters,omitempty"`
	Resources        map[string]*DocumentResource `json:"resources,omitempty"`
	Methods          map[string]*DocumentMethod   `json:"methods,omitempty"`
	Schemas          map[string]json.RawMessage   `json:"schemas,omitempty"`
	Auth             *DocumentAuth                `json:"auth,omitempty"`

	// Raw holds the bytes the document was parsed from.
	Raw []byte `json:"-"`
}

// DocumentResource is a resource node of a discovery document.
type DocumentResource struct {
	Resources map[string]*DocumentResource `json:"resources,omitempty"`
	Methods   map[string]*DocumentMethod   `json:"methods,omitempty"`
}

// DocumentMethod is a method node of a discovery document.
type DocumentMethod struct {
	ID             string                    `json:"id"`
	Path           string                    `json:"path"`
	FlatPath       string                    `json:"flatPath,omitempty"`
	HTTPMethod     string                    `json:"httpMethod"`
	Description    string                    `json:"description"`
	Parameters     map[string]*DocumentParam `json:"parameters,omitempty"`
	ParameterOrder []string                  `json:"parameterOrder,omitempty"`
	Request        *SchemaRef                `json:"request,omitempty"`
	Response       *SchemaRef                `json:"response,omitempty"`
	Scopes         []string                  `json:"scopes,omitempty"`
	MediaUpload    *DocumentMediaUpload      `json:"mediaUpload,omitempty"`
}

// DocumentParam is a parameter declaration of a discovery document.
type DocumentParam struct {
	Location    string   `json:"location"`
	Type        string   `json:"type"`
	Format      string   `json:"format,omitempty"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Repeated    bool     `json:"repeated,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     string   `json:"default,omitempty"`
	Minimum     string   `json:"minimum,omitempty"`
	Maximum     string   `json:"maximum,omitempty"`
}

// SchemaRef points at a named schema of the document.
type SchemaRef struct {
	Ref string `json:"$ref"`
}

// DocumentMediaUpload is the mediaUpload block of a method.
type DocumentMediaUpload struct {
	Accept    []string `json:"accept,omitempty"`
	MaxSize   string   `json:"maxSize,omitempty"`
	Protocols struct {
		Simple *struct {
			Multipart bool   `json:"multipart"`
			Path      string `json:"path"`
		} `json:"simple,omitempty"`
		Resumable *struct {
			Multipart bool   `json:"multipart"`
			Path      string `json:"path"`
		} `json:"resumable,omitempty"`
	} `json:"protocols"`
}

// DocumentAuth lists the OAuth2 scopes a document declares.
type DocumentAuth struct {
	OAuth2 struct {
		Scopes map[string]struct {
			Description string `json:"description"`
		} `json:"scopes"`
	} `json:"oauth2"`
}

// Directory is the response of the discovery directory listing.
type Directory struct {
	Kind             string          `json:"kind"`
	DiscoveryVersion string          `json:"discoveryVersion"`
	Items            []DirectoryItem `json:"items"`
}

// DirectoryItem describes one (name, version) known to the directory.
type DirectoryItem struct {
	Kind             string `json:"kind"              yaml:"kind"`
	ID               string `json:"id"                yaml:"id"`
	Name             string `json:"name"              yaml:"name"`
	Version          string `json:"version"           yaml:"version"`
	Title            string `json:"title"             yaml:"title"`
	Description      string `json:"description"       yaml:"description"`
	DiscoveryRestURL string `json:"discoveryRestUrl"  yaml:"discoveryRestUrl"`
	DocumentationURL string `json:"documentationLink" yaml:"documentationLink"`
	Preferred        bool   `json:"preferred"         yaml:"preferred"`
}

// Versions returns the directory items for name in directory order.
func (d *Directory) Versions(name string) []DirectoryItem {
	var items []DirectoryItem

	for _, item := range d.Items {
		if item.Name == name {
			items = append(items, item)
		}
	}

	return items
}

// Preferred returns the first item for name flagged as preferred.
func (d *Directory) Preferred(name string) (DirectoryItem, bool) {
	for _, item := range d.Versions(name) {
		if item.Preferred {
			return item, true
		}
	}

	return DirectoryItem{}, false
}
