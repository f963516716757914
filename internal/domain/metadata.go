package domain

import "encoding/json"

// MetadataPath is where a console publishes its manifest.
const MetadataPath = "/col/metadata"

// Metadata is the manifest of transferable items, in console order.
type Metadata struct {
	Items []MetadataItem `json:"items"`
}

// MetadataItem describes one downloadable package on the console.
type MetadataItem struct {
	Type                     string   `json:"type"`
	HasContentID             bool     `json:"hasContentId"`
	IsXvc                    *bool    `json:"isXvc,omitempty"`
	ContentID                string   `json:"contentId"`
	ProductID                string   `json:"productId"`
	PackageFamilyName        string   `json:"packageFamilyName"`
	OneStoreProductID        string   `json:"oneStoreProductId"`
	Version                  string   `json:"version"`
	Size                     int64    `json:"size"`
	AllowedProductID         string   `json:"allowedProductId"`
	AllowedPackageFamilyName string   `json:"allowedPackageFamilyName"`
	Path                     string   `json:"path"` // escaped "/col/content/{driveId}#{filename}"
	Availability             string   `json:"availability"`
	Generation               string   `json:"generation"`
	RelatedMedia             []string `json:"relatedMedia"`
	RelatedMediaFamilyNames  []string `json:"relatedMediaFamilyNames"`
}

// MarshalJSON writes a nil item list as [].
func (md Metadata) MarshalJSON() ([]byte, error) {
	type wire Metadata
	w := wire(md)
	if w.Items == nil {
		w.Items = []MetadataItem{}
	}
	return json.Marshal(w)
}

// Normalize replaces nil related-media lists with empty ones, matching what
// a decoded manifest holds.
func (m MetadataItem) Normalize() MetadataItem {
	if m.RelatedMedia == nil {
		m.RelatedMedia = []string{}
	}
	if m.RelatedMediaFamilyNames == nil {
		m.RelatedMediaFamilyNames = []string{}
	}
	return m
}

// MarshalJSON keeps empty related-media lists as [] on the wire.
func (m MetadataItem) MarshalJSON() ([]byte, error) {
	type wire MetadataItem
	return json.Marshal(wire(m.Normalize()))
}

// Key decodes the item's content path.
func (m MetadataItem) Key() (ContentKey, error) {
	return ParseContentPath(m.Path)
}

// Name is the best human label for an item.
func (m MetadataItem) Name() string {
	if m.PackageFamilyName != "" {
		return m.PackageFamilyName
	}
	if key, err := m.Key(); err == nil {
		return key.Filename
	}
	return m.Path
}

// Find returns the first item whose path, package family name or
// store product id equals ref.
func (md *Metadata) Find(ref string) (MetadataItem, bool) {
	for _, it := range md.Items {
		if it.Path == ref || it.PackageFamilyName == ref || (it.OneStoreProductID != "" && it.OneStoreProductID == ref) {
			return it, true
		}
	}
	return MetadataItem{}, false
}
