// Package manifest renders the AndroidManifest.xml for a resolved
// configuration. Output is deterministic: the same configuration always
// produces the same bytes, and declared features and permissions keep their
// declaration order.
package manifest

import (
	"encoding/xml"
	"fmt"
	"sort"

	"droidpack/internal/config"
)

const androidNS = "http://schemas.android.com/apk/res/android"

const fullscreenTheme = "@android:style/Theme.DeviceDefault.NoActionBar.Fullscreen"

// Generate renders the manifest document for cfg. The package identifier is
// validated before anything else so malformed configurations fail before
// any external tool runs.
func Generate(cfg *config.Resolved) ([]byte, error) {
	if err := ValidatePackageName(cfg.PackageName); err != nil {
		return nil, err
	}

	doc := document{
		XMLNS:       androidNS,
		Package:     cfg.PackageName,
		VersionCode: cfg.VersionCode,
		VersionName: cfg.VersionName,
		UsesSDK: usesSDK{
			TargetSDKVersion: cfg.TargetSDKVersion,
			MinSDKVersion:    cfg.MinSDKVersion,
		},
		Application: application{cfg: cfg},
	}

	// The OpenGL ES requirement is synthesized first, then declared
	// features in declaration order.
	doc.UsesFeatures = append(doc.UsesFeatures, usesFeature{
		GlEsVersion: fmt.Sprintf("0x%04x%04x", cfg.GlEsVersionMajor, cfg.GlEsVersionMinor),
		Required:    "true",
	})
	for _, f := range cfg.Features {
		uf := usesFeature{Name: f.Name}
		if f.Version != nil {
			uf.Version = *f.Version
		}
		if f.Required != nil {
			uf.Required = boolAttr(*f.Required)
		}
		doc.UsesFeatures = append(doc.UsesFeatures, uf)
	}

	for _, p := range cfg.Permissions {
		up := usesPermission{Name: p.Name}
		if p.MaxSDKVersion != nil {
			up.MaxSDKVersion = fmt.Sprintf("%d", *p.MaxSDKVersion)
		}
		doc.UsesPermissions = append(doc.UsesPermissions, up)
	}

	body, err := xml.MarshalIndent(&doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshalling manifest: %w", err)
	}

	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

type document struct {
	XMLName     xml.Name `xml:"manifest"`
	XMLNS       string   `xml:"xmlns:android,attr"`
	Package     string   `xml:"package,attr"`
	VersionCode uint32   `xml:"android:versionCode,attr"`
	VersionName string   `xml:"android:versionName,attr"`

	UsesSDK         usesSDK          `xml:"uses-sdk"`
	UsesFeatures    []usesFeature    `xml:"uses-feature"`
	UsesPermissions []usesPermission `xml:"uses-permission"`
	Application     application      `xml:"application"`
}

type usesSDK struct {
	TargetSDKVersion uint32 `xml:"android:targetSdkVersion,attr"`
	MinSDKVersion    uint32 `xml:"android:minSdkVersion,attr"`
}

type usesFeature struct {
	Name        string `xml:"android:name,attr,omitempty"`
	GlEsVersion string `xml:"android:glEsVersion,attr,omitempty"`
	Version     string `xml:"android:version,attr,omitempty"`
	Required    string `xml:"android:required,attr,omitempty"`
}

type usesPermission struct {
	Name          string `xml:"android:name,attr"`
	MaxSDKVersion string `xml:"android:maxSdkVersion,attr,omitempty"`
}

// application marshals itself so the arbitrary attribute map can be merged
// with the fixed attributes in a stable order.
type application struct {
	cfg *config.Resolved
}

func (a application) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	cfg := a.cfg

	start.Name = xml.Name{Local: "application"}
	start.Attr = []xml.Attr{
		attr("android:hasCode", "true"),
		attr("android:label", cfg.Label),
	}
	if cfg.Icon != "" {
		start.Attr = append(start.Attr, attr("android:icon", cfg.Icon))
	}
	if cfg.Fullscreen {
		start.Attr = append(start.Attr, attr("android:theme", fullscreenTheme))
	}
	start.Attr = appendSorted(start.Attr, cfg.ApplicationAttributes)

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(activity{cfg: cfg}); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// activity carries the fixed MainActivity shape: the native library
// meta-data entry the loader reads, and the MAIN/LAUNCHER intent filter.
type activity struct {
	cfg *config.Resolved
}

type metaData struct {
	XMLName xml.Name `xml:"meta-data"`
	Name    string   `xml:"android:name,attr"`
	Value   string   `xml:"android:value,attr"`
}

type intentFilter struct {
	XMLName  xml.Name       `xml:"intent-filter"`
	Action   intentAction   `xml:"action"`
	Category intentCategory `xml:"category"`
}

type intentAction struct {
	Name string `xml:"android:name,attr"`
}

type intentCategory struct {
	Name string `xml:"android:name,attr"`
}

func (a activity) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	cfg := a.cfg

	start.Name = xml.Name{Local: "activity"}
	start.Attr = []xml.Attr{
		attr("android:name", ".MainActivity"),
		attr("android:label", cfg.Label),
		attr("android:configChanges", "orientation|keyboardHidden|screenSize"),
	}
	start.Attr = appendSorted(start.Attr, cfg.ActivityAttributes)

	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(metaData{Name: "android.app.lib_name", Value: cfg.LibName()}); err != nil {
		return err
	}
	filter := intentFilter{
		Action:   intentAction{Name: "android.intent.action.MAIN"},
		Category: intentCategory{Name: "android.intent.category.LAUNCHER"},
	}
	if err := e.Encode(filter); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// appendSorted appends the arbitrary attribute map in sorted key order.
// Key collisions were already collapsed at the map level (last declaration
// wins); sorting here keeps the rendered bytes reproducible.
func appendSorted(attrs []xml.Attr, m map[string]string) []xml.Attr {
	if len(m) == 0 {
		return attrs
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, attr(k, m[k]))
	}
	return attrs
}
